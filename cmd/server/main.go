package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gecilind/University-Management-System/internal/config"
	"github.com/gecilind/University-Management-System/internal/database"
	"github.com/gecilind/University-Management-System/internal/handler"
	"github.com/gecilind/University-Management-System/internal/logging"
	"github.com/gecilind/University-Management-System/internal/middleware"
	"github.com/gecilind/University-Management-System/internal/repository"
	"github.com/gecilind/University-Management-System/internal/router"
	"github.com/gecilind/University-Management-System/internal/service"
	"github.com/gecilind/University-Management-System/internal/utils"
	"github.com/gecilind/University-Management-System/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.New("info").WithError(err).Fatal("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.Open(initCtx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		cancel()
		log.WithError(err).Fatal("open database")
	}
	if err := database.EnsureSchema(initCtx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("ensure schema")
	}
	cancel()
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db, cfg.RefreshTTL())
	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL())

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.SessionEventsEnabled {
		amqpPub := service.NewAMQPPublisher(cfg.AMQPURL)
		defer amqpPub.Close()
		// Delivery runs in the background so a slow broker never holds up a request.
		pub := service.NewAsyncPublisher(amqpPub, 256, 2*time.Second, log)
		defer pub.Close()
		events = pub
	}

	sessions := service.NewSessionService(users, tokens, codec, events)
	sessions.Credentials.Cost = cfg.BcryptCost
	gate := middleware.NewGate(codec, users)

	// The rate limiter fails open: without Redis login and renew are unlimited.
	rlCfg := config.LoadRateLimitConfig()
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable; rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(rlCfg, rdb)

	e := router.New(log)
	router.RegisterRoutes(e, db)
	api := router.API(e, gate)
	cookies := handler.CookieOptions{Path: "/", Secure: cfg.CookieSecure}
	router.RegisterAuth(api, handler.NewAuthHandler(sessions, cookies, cfg.AccessTTL(), cfg.RefreshTTL()), limit)
	router.RegisterDashboards(api)

	if cfg.SweepSchedule != "" {
		sweeper := worker.NewSweeper(tokens, events, log)
		stopSweeper, err := sweeper.Start(cfg.SweepSchedule)
		if err != nil {
			log.WithError(err).Fatal("start sweeper")
		}
		defer stopSweeper()
	}

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
