// Command seed-user creates an identity and, optionally, the profile row
// that gives it a role.
//
//	seed-user -username ana -email ana@uni.test -password secret -role professor
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/gecilind/University-Management-System/internal/config"
	"github.com/gecilind/University-Management-System/internal/database"
	"github.com/gecilind/University-Management-System/internal/logging"
	"github.com/gecilind/University-Management-System/internal/model"
	"github.com/gecilind/University-Management-System/internal/repository"
)

func main() {
	username := flag.String("username", "", "Username (required)")
	email := flag.String("email", "", "Email address")
	password := flag.String("password", "", "Plain text password (required)")
	role := flag.String("role", string(model.RoleUser), "admin, professor, student or user")
	flag.Parse()

	log := logging.New("info")
	if *username == "" || *password == "" {
		flag.Usage()
		log.Fatal("username and password are required")
	}

	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Fatal("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.WithError(err).Fatal("ensure schema")
	}

	users := repository.NewUserRepo(db)
	id, err := users.CreateWithRole(ctx, *username, *email, *password, cfg.BcryptCost, model.Role(*role))
	if errors.Is(err, repository.ErrConflict) {
		log.WithField("username", *username).Fatal("username already taken")
	}
	if err != nil {
		log.WithError(err).Fatal("create user")
	}
	log.WithField("user_id", id).WithField("role", *role).Info("user created")
}
