package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/airwatchpro/airwatch/internal/cache"
)

// Cache outcomes reported to a CacheRecorder.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// CacheRecorder observes cache lookups.
type CacheRecorder interface {
	ObserveCache(result string)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	Resolver *Resolver
	Logger   zerolog.Logger

	// Cache defaults to an in-memory cache.
	Cache cache.Cache

	// History, when set, receives every live reading.
	History HistoryRepository

	Clock    clockwork.Clock
	Recorder CacheRecorder

	// CacheTTL is how long a live reading is served (default: 5 minutes).
	CacheTTL time.Duration

	// SyntheticTTL is how long a synthetic reading is served, kept short
	// so recovering sources are retried soon (default: 1 minute).
	SyntheticTTL time.Duration

	// StaleIfErrorTTL is how long a live reading may replace a synthetic
	// one after it expires (default: 30 minutes).
	StaleIfErrorTTL time.Duration
}

// Service resolves readings behind a per-location cache.
type Service struct {
	resolver        *Resolver
	logger          zerolog.Logger
	cache           cache.Cache
	history         HistoryRepository
	clock           clockwork.Clock
	recorder        CacheRecorder
	cacheTTL        time.Duration
	syntheticTTL    time.Duration
	staleIfErrorTTL time.Duration

	group singleflight.Group
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory(cache.WithClock(cfg.Clock))
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.SyntheticTTL <= 0 {
		cfg.SyntheticTTL = time.Minute
	}
	if cfg.StaleIfErrorTTL < cfg.CacheTTL {
		cfg.StaleIfErrorTTL = 30 * time.Minute
	}

	return &Service{
		resolver:        cfg.Resolver,
		logger:          cfg.Logger,
		cache:           cfg.Cache,
		history:         cfg.History,
		clock:           cfg.Clock,
		recorder:        cfg.Recorder,
		cacheTTL:        cfg.CacheTTL,
		syntheticTTL:    cfg.SyntheticTTL,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
	}
}

// GridKey buckets a coordinate into a ~1 km cell.
func GridKey(c Coordinate) string {
	return fmt.Sprintf("aq:%.2f:%.2f", math.Round(c.Latitude*100)/100, math.Round(c.Longitude*100)/100)
}

// Get returns a reading for c, from cache when fresh.
func (s *Service) Get(ctx context.Context, c Coordinate) (*Reading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	key := GridKey(c)
	cached := s.lookup(ctx, key)
	if cached != nil && s.isFresh(cached) {
		s.observe(CacheHit)
		return cached.reading(c), nil
	}
	s.observe(CacheMiss)

	// The flight is shared, so one caller going away must not cut it short
	// for the rest. The resolver's per-attempt timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.resolve(flightCtx, key, c, cached)
	})
	if err != nil {
		return nil, err
	}
	return v.(*cachedReading).reading(c), nil
}

// Refresh bypasses the cache and stores a fresh resolution.
func (s *Service) Refresh(ctx context.Context, c Coordinate) (*Reading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	key := GridKey(c)
	entry, err := s.resolve(ctx, key, c, s.lookup(ctx, key))
	if err != nil {
		return nil, err
	}
	return entry.reading(c), nil
}

// Invalidate drops the cached reading for c.
func (s *Service) Invalidate(ctx context.Context, c Coordinate) error {
	return s.cache.Delete(ctx, GridKey(c))
}

// History returns recorded live readings near c, newest first.
func (s *Service) History(ctx context.Context, c Coordinate, limit int) ([]*Reading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []*Reading{}, nil
	}
	return s.history.List(ctx, c, limit)
}

// Sources lists the live sources in priority order.
func (s *Service) Sources() []Source {
	return s.resolver.Sources()
}

func (s *Service) resolve(ctx context.Context, key string, c Coordinate, previous *cachedReading) (*cachedReading, error) {
	reading, err := s.resolver.Resolve(ctx, c)
	if err != nil {
		return nil, err
	}

	// A recent live reading is preferable to a synthetic one.
	if !reading.Source.IsLive() && previous != nil && previous.Source.IsLive() &&
		s.clock.Now().Before(previous.FetchedAt.Add(s.staleIfErrorTTL)) {
		s.observe(CacheStale)
		s.logger.Warn().
			Str("key", key).
			Time("fetched_at", previous.FetchedAt).
			Msg("serving stale air quality reading, all sources failed")
		return previous, nil
	}

	entry := newCachedReading(reading, s.clock.Now())
	s.store(ctx, key, entry)

	if reading.Source.IsLive() && s.history != nil {
		if err := s.history.Record(ctx, reading); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to record air quality history")
		}
	}

	s.logger.Debug().
		Str("key", key).
		Str("source", string(reading.Source)).
		Int("aqi", reading.AQI).
		Msg("air quality reading cached")
	return entry, nil
}

func (s *Service) isFresh(e *cachedReading) bool {
	ttl := s.cacheTTL
	if !e.Source.IsLive() {
		ttl = s.syntheticTTL
	}
	return s.clock.Now().Before(e.FetchedAt.Add(ttl))
}

func (s *Service) lookup(ctx context.Context, key string) *cachedReading {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.observe(CacheError)
		s.logger.Warn().Err(err).Str("key", key).Msg("air quality cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	var entry cachedReading
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return nil
	}
	return &entry
}

func (s *Service) store(ctx context.Context, key string, entry *cachedReading) {
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode air quality cache entry")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.staleIfErrorTTL); err != nil {
		s.observe(CacheError)
		s.logger.Warn().Err(err).Str("key", key).Msg("air quality cache write failed")
	}
}

func (s *Service) observe(result string) {
	if s.recorder != nil {
		s.recorder.ObserveCache(result)
	}
}

// cachedReading is the cache encoding of a Reading.
type cachedReading struct {
	Latitude   float64               `json:"lat"`
	Longitude  float64               `json:"lon"`
	Location   string                `json:"location"`
	AQI        int                   `json:"aqi"`
	Pollutants map[Pollutant]float64 `json:"pollutants"`
	Source     Source                `json:"source"`
	Timestamp  time.Time             `json:"timestamp"`
	FetchedAt  time.Time             `json:"fetched_at"`
}

func newCachedReading(r *Reading, fetchedAt time.Time) *cachedReading {
	return &cachedReading{
		Latitude:   r.Coordinates.Latitude,
		Longitude:  r.Coordinates.Longitude,
		Location:   r.Location,
		AQI:        r.AQI,
		Pollutants: r.Pollutants,
		Source:     r.Source,
		Timestamp:  r.Timestamp,
		FetchedAt:  fetchedAt,
	}
}

// reading rebuilds a Reading for the requested coordinate. Readings are
// shared per grid cell, so the caller's coordinate replaces the cell's.
func (e *cachedReading) reading(c Coordinate) *Reading {
	pollutants := make(Pollutants, len(e.Pollutants))
	for k, v := range e.Pollutants {
		pollutants[k] = v
	}
	return &Reading{
		Coordinates: c,
		Location:    e.Location,
		AQI:         e.AQI,
		Pollutants:  pollutants,
		Source:      e.Source,
		Timestamp:   e.Timestamp,
	}
}
