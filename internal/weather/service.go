package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/airwatchpro/airwatch/internal/cache"
)

// Provider fetches current conditions from an upstream weather API.
type Provider interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider may be nil, in which case every lookup fails with
	// ErrNotConfigured.
	Provider Provider
	Logger   zerolog.Logger

	// Cache is shared with the air quality service when memcached is
	// configured. Defaults to an in-memory cache.
	Cache cache.Cache

	// CacheTTL is how long an observation is served (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the cell size in degrees; points in one cell share
	// an observation (default: 0.1, about 11 km).
	CacheGridSize float64

	// StaleIfErrorTTL is how long an expired observation may still be
	// served while the provider fails (default: 1 hour).
	StaleIfErrorTTL time.Duration

	Clock clockwork.Clock
}

// Service serves provider observations behind a grid-cell cache.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cache           cache.Cache
	clock           clockwork.Clock
	cacheTTL        time.Duration
	gridSize        float64
	staleIfErrorTTL time.Duration

	group singleflight.Group
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory(cache.WithClock(cfg.Clock))
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.CacheGridSize <= 0 {
		cfg.CacheGridSize = 0.1
	}
	if cfg.StaleIfErrorTTL < cfg.CacheTTL {
		cfg.StaleIfErrorTTL = time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cache:           cfg.Cache,
		clock:           cfg.Clock,
		cacheTTL:        cfg.CacheTTL,
		gridSize:        cfg.CacheGridSize,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
	}
}

// GetCurrentWeather returns the observation for the cell containing
// lat/lon. Concurrent misses for one cell share a single provider call.
func (s *Service) GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	key := s.cellKey(lat, lon)
	if e := s.lookup(ctx, key); e != nil && s.isFresh(e) {
		return e.Observation, nil
	}

	// Shared by every waiter on the cell; the provider client has its own
	// timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have filled the cell while this one waited.
		cached := s.lookup(flightCtx, key)
		if cached != nil && s.isFresh(cached) {
			return cached.Observation, nil
		}
		return s.fetch(flightCtx, key, lat, lon, cached)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Observation), nil
}

func (s *Service) fetch(ctx context.Context, key string, lat, lon float64, previous *cachedObservation) (*Observation, error) {
	obs, err := s.provider.GetCurrentWeather(ctx, lat, lon)
	if err == nil {
		s.store(ctx, key, &cachedObservation{Observation: obs, FetchedAt: s.clock.Now()})
		return obs, nil
	}

	s.logger.Error().Err(err).
		Str("provider", s.provider.Name()).
		Str("key", key).
		Msg("failed to fetch weather")

	if previous != nil && s.clock.Now().Before(previous.FetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Warn().
			Str("key", key).
			Time("fetched_at", previous.FetchedAt).
			Msg("serving stale weather, provider failed")
		return previous.Observation, nil
	}
	if errors.Is(err, ErrNotConfigured) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func (s *Service) cellKey(lat, lon float64) string {
	return fmt.Sprintf("wx:%.2f:%.2f",
		math.Floor(lat/s.gridSize)*s.gridSize,
		math.Floor(lon/s.gridSize)*s.gridSize)
}

func (s *Service) isFresh(e *cachedObservation) bool {
	return s.clock.Now().Before(e.FetchedAt.Add(s.cacheTTL))
}

func (s *Service) lookup(ctx context.Context, key string) *cachedObservation {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("weather cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	var e cachedObservation
	if err := json.Unmarshal(raw, &e); err != nil || e.Observation == nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable weather cache entry")
		return nil
	}
	return &e
}

func (s *Service) store(ctx context.Context, key string, e *cachedObservation) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode weather cache entry")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.staleIfErrorTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("weather cache write failed")
	}
}

type cachedObservation struct {
	Observation *Observation `json:"observation"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
