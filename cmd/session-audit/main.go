// Command session-audit consumes session events from RabbitMQ and appends
// them to <AUDIT_LOG_DIR>/session.log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gecilind/University-Management-System/internal/config"
	"github.com/gecilind/University-Management-System/internal/logging"
	"github.com/gecilind/University-Management-System/internal/queue"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.New("info").WithError(err).Fatal("load .env")
	}
	log := logging.New(os.Getenv("LOG_LEVEL"))

	dir := os.Getenv("AUDIT_LOG_DIR")
	if dir == "" {
		dir = "logs"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.SessionConsumer{URL: config.AMQPURL(), Dir: dir, Log: log}
	log.WithField("dir", dir).Info("session audit consumer starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("session audit consumer stopped")
	}
	log.Info("session audit consumer stopped")
}
