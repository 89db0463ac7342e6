// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/StaycationHaven/internal/config"
	"github.com/codr1/StaycationHaven/internal/db"
	"github.com/codr1/StaycationHaven/internal/email"
	"github.com/codr1/StaycationHaven/internal/scheduler"
	"github.com/codr1/StaycationHaven/internal/weather"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment, cfg.Features.EnableDebug)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	// nil when SES is not configured; an unset interface keeps senders no-ops.
	var mailer email.EmailSender
	if cfg.EmailEnabled() {
		ses, err := email.NewSESClient(context.Background(), email.SESOptions{
			Region:          cfg.Email.Region,
			Sender:          cfg.Email.Sender,
			AccessKeyID:     cfg.Email.AccessKeyID,
			SecretAccessKey: cfg.Email.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SES client")
		}
		mailer = ses
		log.Info().Str("region", cfg.Email.Region).Msg("Email delivery enabled")
	} else {
		log.Warn().Msg("Email delivery disabled: SES not configured")
	}

	cache, err := weather.NewCache(cfg.Cache.RedisURL, cfg.Cache.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize weather cache")
	}
	if redisCache, ok := cache.(*weather.RedisCache); ok {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, weather cache falling back to memory")
			cache = weather.NewMemoryCache(nil)
		}
		cancel()
		defer redisCache.Close()
	}
	forecaster := weather.NewClient(weather.Options{
		BaseURL:  cfg.Weather.BaseURL,
		Timeout:  cfg.Weather.Timeout,
		CacheTTL: cfg.Weather.CacheTTL,
	}, cache)

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterJobs(database, mailer, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scheduler jobs")
	}

	server, closeServer := newServer(cfg, deps{database: database, mailer: mailer, weather: forecaster})
	defer closeServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
