// Command server runs the planetarium booking API: it loads configuration
// from the environment (and .env when present), migrates the MySQL schema,
// connects the optional Redis cache and RabbitMQ event queue, and serves
// HTTP until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/database/migrations"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/queue"
	"github.com/iliyamo/planetarium-reservation/internal/router"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

func main() {
	envErr := godotenv.Load()

	log, err := logger.New(envOr("LOG_DIR", "logs"), "planetarium")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Close()
	if envErr != nil {
		log.Warn("CONFIG", "no .env file loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("DATABASE", "open: "+err.Error())
	}
	defer db.Close()
	version, err := migrations.Apply(db, migrations.MySQL)
	if err != nil {
		log.Fatal("DATABASE", "migrate: "+err.Error())
	}
	log.LogDatabase("migrate", fmt.Sprintf("schema at version %d", version))

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("CACHE", "redis unreachable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var publisher service.EventPublisher
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.AMQPURL, log)
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.LogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("QUEUE", "consumer stopped: "+err.Error())
			}
		}()
	}

	e, booking := router.New(router.Deps{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Publisher: publisher,
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("SERVER", fmt.Sprintf("listening on %s (env=%s)", addr, cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("SERVER", err.Error())
		}
	}()

	<-ctx.Done()
	log.Info("SERVER", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", "shutdown: "+err.Error())
	}
	booking.Wait()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
