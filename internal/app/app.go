// Package app assembles the services shared by the API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/airquality/airnow"
	"github.com/airwatchpro/airwatch/internal/airquality/openaq"
	"github.com/airwatchpro/airwatch/internal/airquality/tempo"
	"github.com/airwatchpro/airwatch/internal/api/handler"
	"github.com/airwatchpro/airwatch/internal/cache"
	"github.com/airwatchpro/airwatch/internal/config"
	"github.com/airwatchpro/airwatch/internal/database"
	"github.com/airwatchpro/airwatch/internal/featureflags"
	"github.com/airwatchpro/airwatch/internal/observability"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
	"github.com/airwatchpro/airwatch/internal/telemetry"
	"github.com/airwatchpro/airwatch/internal/weather"
	"github.com/airwatchpro/airwatch/internal/weather/openweathermap"
)

// historyPerCell bounds the in-memory history when Postgres is off.
const historyPerCell = airquality.MaxHistoryLimit

// NewLogger creates the process logger at cfg.LogLevel.
func NewLogger(cfg *config.Config, service, version string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// App holds the wired services.
type App struct {
	Logger     zerolog.Logger
	Telemetry  *telemetry.Provider
	Metrics    *observability.Metrics
	Registry   *resilience.Registry
	Flags      *featureflags.Service
	AirQuality *airquality.Service
	Weather    *weather.Service

	// Checks probe the optional backing stores for readiness.
	Checks []handler.ReadinessCheck

	pool      *pgxpool.Pool
	memcached *cache.Memcached
}

// New connects the backing stores and builds the services.
func New(ctx context.Context, cfg *config.Config, service, version string) (*App, error) {
	log := NewLogger(cfg, service, version)
	a := &App{
		Logger:   log,
		Metrics:  observability.NewMetrics(),
		Registry: resilience.GlobalRegistry,
	}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	a.Telemetry = tp
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	if cfg.DatabaseEnabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.pool = pool
		a.Checks = append(a.Checks, handler.ReadinessCheck{Name: "postgres", Check: pool.Ping})
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	}

	var flagRepo featureflags.Repository = featureflags.NewInMemoryRepository(nil)
	if a.pool != nil {
		flagRepo = featureflags.NewPostgresRepository(a.pool, nil)
	}
	a.Flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	var readingCache cache.Cache = cache.NewMemory()
	if len(cfg.MemcachedServers) > 0 {
		a.memcached = cache.NewMemcached(cfg.MemcachedServers, 500*time.Millisecond)
		readingCache = a.memcached
		a.Checks = append(a.Checks, handler.ReadinessCheck{
			Name:  "memcached",
			Check: func(context.Context) error { return a.memcached.Ping() },
		})
		log.Info().Strs("servers", cfg.MemcachedServers).Msg("using memcached reading cache")
	}

	var history airquality.HistoryRepository = airquality.NewMemoryHistory(historyPerCell)
	if a.pool != nil {
		history = airquality.NewPostgresHistory(a.pool)
	}

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters: adapters(cfg, a.Registry, log),
		Timeout:  cfg.AdapterTimeout,
		Logger:   log,
		Recorder: a.Metrics,
		Gate:     a.Flags,
	})
	a.AirQuality = airquality.NewService(airquality.ServiceConfig{
		Resolver: resolver,
		Logger:   log,
		Cache:    readingCache,
		History:  history,
		Recorder: a.Metrics,
		CacheTTL: cfg.CacheTTL,
	})

	var weatherProvider weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		weatherProvider = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:   cfg.OpenWeatherAPIKey,
			Registry: a.Registry,
			Timeout:  cfg.AdapterTimeout,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - weather endpoints will answer 503")
	}
	a.Weather = weather.NewService(weather.ServiceConfig{
		Provider: weatherProvider,
		Logger:   log,
		Cache:    readingCache,
	})

	return a, nil
}

// adapters builds the live sources in priority order. Sources without
// credentials stay in the chain and fail fast as not configured.
func adapters(cfg *config.Config, registry *resilience.Registry, log zerolog.Logger) []airquality.Adapter {
	var creds *tempo.CredentialCache
	if cfg.EarthdataToken != "" || cfg.EarthdataUsername != "" {
		creds = tempo.NewCredentialCache(tempo.CredentialConfig{
			StaticToken: cfg.EarthdataToken,
			Username:    cfg.EarthdataUsername,
			Password:    cfg.EarthdataPassword,
		})
	}

	for name, set := range map[string]bool{
		"OPENAQ_API_KEY":     cfg.OpenAQAPIKey != "",
		"EPA_AIRNOW_API_KEY": cfg.AirNowAPIKey != "",
		"NASA_EARTHDATA_*":   creds != nil,
	} {
		if !set {
			log.Warn().Str("credential", name).Msg("source not configured")
		}
	}

	return []airquality.Adapter{
		openaq.NewClient(openaq.ClientConfig{
			BaseURL:  cfg.OpenAQBaseURL,
			APIKey:   cfg.OpenAQAPIKey,
			Registry: registry,
			Timeout:  cfg.AdapterTimeout,
		}),
		airnow.NewClient(airnow.ClientConfig{
			BaseURL:  cfg.AirNowBaseURL,
			APIKey:   cfg.AirNowAPIKey,
			Registry: registry,
			Timeout:  cfg.AdapterTimeout,
		}),
		tempo.NewClient(tempo.ClientConfig{
			BaseURL:     cfg.CMRBaseURL,
			Credentials: creds,
			Registry:    registry,
			Timeout:     cfg.AdapterTimeout,
		}),
	}
}

// Close releases the backing stores and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.pool != nil {
		a.pool.Close()
	}
	if a.memcached != nil {
		errs = append(errs, a.memcached.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
