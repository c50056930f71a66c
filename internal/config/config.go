// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/airwatchpro/airwatch/internal/database"
)

// Config is the configuration shared by the API server and the worker.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	OTelEnabled  bool
	OTLPEndpoint string

	OpenAQAPIKey  string
	OpenAQBaseURL string

	AirNowAPIKey  string
	AirNowBaseURL string

	EarthdataToken    string
	EarthdataUsername string
	EarthdataPassword string
	CMRBaseURL        string

	OpenWeatherAPIKey string

	AdapterTimeout time.Duration
	CacheTTL       time.Duration

	// MemcachedServers switches the reading cache from memory to memcached.
	MemcachedServers []string

	DatabaseEnabled bool
	Database        database.Config

	AdminSigningKey string

	KafkaBrokers []string
	KafkaTopic   string

	PubSubProjectID    string
	PubSubSubscription string

	RefreshInterval time.Duration
	RequireTLS      bool
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnvOrDefault(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, os.Getenv(key)))
		}
		return d
	}
	boolean := func(key string, def bool) bool {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		}
		return b
	}

	cfg := &Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),

		OTelEnabled:  boolean("OTEL_ENABLED", false),
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		OpenAQAPIKey:  os.Getenv("OPENAQ_API_KEY"),
		OpenAQBaseURL: os.Getenv("OPENAQ_BASE_URL"),

		AirNowAPIKey:  os.Getenv("EPA_AIRNOW_API_KEY"),
		AirNowBaseURL: os.Getenv("AIRNOW_BASE_URL"),

		EarthdataToken:    os.Getenv("NASA_EARTHDATA_TOKEN"),
		EarthdataUsername: os.Getenv("NASA_EARTHDATA_USERNAME"),
		EarthdataPassword: os.Getenv("NASA_EARTHDATA_PASSWORD"),
		CMRBaseURL:        os.Getenv("CMR_BASE_URL"),

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),

		AdapterTimeout: duration("ADAPTER_TIMEOUT", "8s"),
		CacheTTL:       duration("CACHE_TTL", "5m"),

		MemcachedServers: splitList(os.Getenv("MEMCACHED_SERVERS")),

		DatabaseEnabled: boolean("DATABASE_ENABLED", false),

		AdminSigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "airwatch.readings"),

		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "airwatch-refresh"),

		RefreshInterval: duration("REFRESH_INTERVAL", "10m"),
		RequireTLS:      boolean("REQUIRE_TLS", false),
	}

	db, err := database.ConfigFromEnv()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Database = db

	if cfg.IsProduction() && cfg.AdminSigningKey == "" {
		errs = append(errs, errors.New("ADMIN_JWT_SIGNING_KEY is required in production"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
