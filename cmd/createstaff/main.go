// Command createstaff creates a staff account, or promotes an existing
// account to staff and resets its password.
//
//	createstaff -email admin@example.com -password s3cret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/database/migrations"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

func main() {
	email := flag.String("email", "", "staff e-mail address")
	password := flag.String("password", "", "staff password (at least 5 characters)")
	flag.Parse()

	if *email == "" || len(*password) < 5 {
		flag.Usage()
		os.Exit(2)
	}
	_ = godotenv.Load()
	log := logger.NewWriter(os.Stdout, nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()
	if _, err := migrations.Apply(db, migrations.MySQL); err != nil {
		log.Fatal("DATABASE", "migrate: "+err.Error())
	}

	id, created, err := ensureStaff(ctx, repository.NewUserRepo(db), repository.NewTokenRepo(db), *email, *password, cfg.BcryptCost)
	if err != nil {
		log.Fatal("USER", err.Error())
	}
	if created {
		log.Info("USER", fmt.Sprintf("created staff user %d (%s)", id, repository.NormalizeEmail(*email)))
	} else {
		log.Info("USER", fmt.Sprintf("promoted user %d (%s) to staff", id, repository.NormalizeEmail(*email)))
	}
}

// ensureStaff creates the account, or for an existing e-mail sets the
// staff flag, resets the password and revokes its refresh tokens.
func ensureStaff(ctx context.Context, users *repository.UserRepo, tokens *repository.TokenRepo, email, password string, cost int) (uint64, bool, error) {
	id, err := users.Create(ctx, email, password, true, cost)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, repository.ErrEmailExists) {
		return 0, false, err
	}
	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		return 0, false, err
	}
	if err := users.SetStaff(ctx, u.ID, true); err != nil {
		return 0, false, err
	}
	if err := users.SetPassword(ctx, u.ID, password, cost); err != nil {
		return 0, false, err
	}
	if err := tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return 0, false, err
	}
	return u.ID, false, nil
}
