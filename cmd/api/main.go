// Package main provides the entrypoint for the AirWatch Pro API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/api"
	"github.com/airwatchpro/airwatch/internal/api/middleware"
	"github.com/airwatchpro/airwatch/internal/app"
	"github.com/airwatchpro/airwatch/internal/auth"
	"github.com/airwatchpro/airwatch/internal/config"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airwatch-api"

	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, serviceName, Version)
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("failed to start")
	}
	log := a.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := a.Close(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to release resources")
		}
	}()

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Msg("starting AirWatch API")

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return
	}

	var tokens middleware.TokenValidator
	if cfg.AdminSigningKey != "" {
		tokenService, err := auth.NewTokenService(auth.TokenConfig{SigningKey: cfg.AdminSigningKey})
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize admin tokens")
			return
		}
		tokens = tokenService
	} else {
		log.Warn().Msg("ADMIN_JWT_SIGNING_KEY not set - admin endpoints disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		Metrics:         metrics,
		AirQuality:      a.AirQuality,
		Weather:         a.Weather,
		Flags:           a.Flags,
		Tokens:          tokens,
		Registry:        a.Registry,
		ReadinessChecks: a.Checks,
		PromHandler:     a.Metrics.Handler(),
		RequireTLS:      cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		log.Error().Err(err).Msg("server error")
		return
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
