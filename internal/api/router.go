// Package api provides the HTTP API for AirWatch Pro.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/api/handler"
	"github.com/airwatchpro/airwatch/internal/api/middleware"
	"github.com/airwatchpro/airwatch/internal/featureflags"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
	"github.com/airwatchpro/airwatch/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	AirQuality handler.AirQualityService

	// Weather defaults to an unconfigured service that answers 503.
	Weather handler.WeatherService

	// Flags backs the admin flag endpoints, the weather context switch and
	// the degradation list on /v1/ops/status (optional).
	Flags *featureflags.Service

	// Tokens validates admin bearer tokens. Admin routes are not mounted
	// without it.
	Tokens middleware.TokenValidator

	Registry        *resilience.Registry
	ReadinessChecks []handler.ReadinessCheck

	// PromHandler is served on /metrics when set.
	PromHandler http.Handler

	RequireTLS bool
	Clock      clockwork.Clock
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	weatherService := cfg.Weather
	if weatherService == nil {
		weatherService = weather.NewService(weather.ServiceConfig{Logger: cfg.Logger, Clock: cfg.Clock})
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
	}).Handler)
	r.Use(middleware.ContentTypeJSON)

	opsCfg := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.ReadinessChecks,
		Clock:     cfg.Clock,
	}
	var gate handler.WeatherContextGate
	if cfg.Flags != nil {
		opsCfg.Flags = cfg.Flags
		gate = cfg.Flags
	}

	opsHandler := handler.NewOpsHandler(opsCfg)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQuality, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(weatherService, gate, cfg.Logger)
	enhancedHandler := handler.NewEnhancedAirQualityHandler(cfg.AirQuality, weatherService, gate, cfg.Logger)
	healthRiskHandler := handler.NewHealthRiskHandler(cfg.AirQuality, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler()

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	// Public dashboard API, no rate limit.
	r.Route("/api", func(r chi.Router) {
		r.Get("/air-quality", airQualityHandler.GetAirQuality)
		r.Get("/weather", weatherHandler.GetWeather)
		r.Get("/health", opsHandler.ServiceHealth)
	})

	if cfg.PromHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.PromHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/air-quality", airQualityHandler.GetAirQualityDetail)
			r.Get("/air-quality/history", airQualityHandler.GetHistory)
			r.Get("/air-quality/enhanced", enhancedHandler.GetEnhancedAirQuality)
			r.Get("/health-risk", healthRiskHandler.GetHealthRisk)
			r.Get("/health-risk/levels", healthRiskHandler.GetRiskLevels)
			r.Get("/health-risk/recommendations/{level}", healthRiskHandler.GetRecommendations)
			r.Get("/satellite/coverage", metadataHandler.GetSatelliteCoverage)
			r.Get("/metadata/enums", metadataHandler.GetEnums)
		})

		if cfg.Tokens == nil {
			return
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.Tokens))
			r.Use(middleware.RateLimitBySubject(middleware.AuthRateLimit))
			r.Use(middleware.RequireJSON)

			if cfg.Flags != nil {
				flagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags, cfg.Logger)
				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", flagsHandler.ListFeatureFlags)
					r.Put("/", flagsHandler.UpsertFeatureFlags)
					r.Delete("/{key}", flagsHandler.ResetFeatureFlag)
					r.Post("/invalidate", flagsHandler.InvalidateCache)
				})
			}

			r.Post("/air-quality/refresh", airQualityHandler.RefreshAirQuality)
			r.Delete("/air-quality/cache", airQualityHandler.InvalidateAirQuality)
		})
	})

	return r
}
