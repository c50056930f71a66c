package featureflags

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

const defaultCacheTTL = time.Minute

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds how long a flag read from the repository is trusted.
	// Defaults to one minute.
	CacheTTL time.Duration

	// DefaultFlags answer for keys the repository does not hold, and for
	// every key while the repository is failing.
	DefaultFlags map[string]*Flag
	Clock        clockwork.Clock
}

// Service evaluates flags for the resolver and the handlers. Reads are
// served from a short-lived cache in front of the repository.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	clock    clockwork.Clock
	ttl      time.Duration
	defaults map[string]*Flag

	mu      sync.RWMutex
	cached  map[string]*Flag
	expires time.Time
}

var _ airquality.SourceGate = (*Service)(nil)

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		ttl:      cfg.CacheTTL,
		defaults: cfg.DefaultFlags,
		cached:   make(map[string]*Flag),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.defaults == nil {
		s.defaults = DefaultFlags(s.clock.Now())
	}
	return s
}

// GetFlag returns the flag for key: cached, then stored, then default.
// It returns nil only for keys that have no default.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if f, ok := s.fromCache(key); ok {
		return f
	}

	f, err := s.repo.GetFlag(ctx, key)
	switch {
	case err == nil:
		s.remember(f)
		return f
	case !errors.Is(err, ErrFlagNotFound):
		s.logger.Warn().Err(err).Str("flag", key).Msg("flag lookup failed, using default")
	}
	return s.defaults[key]
}

// GetAllFlags returns stored flags merged over the defaults and refreshes
// the whole cache.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	merged := maps.Clone(s.defaults)

	stored, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("flag listing failed, using defaults")
		return merged
	}
	maps.Copy(merged, stored)

	s.mu.Lock()
	s.cached = stored
	s.expires = s.clock.Now().Add(s.ttl)
	s.mu.Unlock()

	return merged
}

// SetFlag updates a feature flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags writes every flag or none and makes the new values visible to
// this replica immediately. Other replicas see them after their cache TTL.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := s.clock.Now()
	for _, f := range flags {
		f.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	for _, f := range flags {
		s.remember(f)
		s.logger.Info().Str("flag", f.Key).Interface("value", f.Value).Msg("feature flag updated")
	}
	return nil
}

// ResetFlag drops the stored override for key. Resetting a flag that has
// no override is not an error.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if err := s.repo.DeleteFlag(ctx, key); err != nil && !errors.Is(err, ErrFlagNotFound) {
		return err
	}

	s.mu.Lock()
	delete(s.cached, key)
	s.mu.Unlock()

	s.logger.Info().Str("flag", key).Msg("feature flag reset")
	return nil
}

// InvalidateCache forces the next read of every flag to hit the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cached = make(map[string]*Flag)
	s.expires = time.Time{}
	s.mu.Unlock()
}

// IsEnabled reports whether key is truthy. Unknown keys are off.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// SourceEnabled reports whether the resolver may query source. Sources
// without a switch are always enabled.
func (s *Service) SourceEnabled(ctx context.Context, source airquality.Source) bool {
	key := SourceFlag(source)
	return key == "" || !s.IsEnabled(ctx, key)
}

// SyntheticOnly reports whether every live source is bypassed.
func (s *Service) SyntheticOnly(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagSyntheticOnly)
}

// WeatherContextDisabled reports whether weather modifiers are omitted.
func (s *Service) WeatherContextDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableWeatherContext)
}

func (s *Service) fromCache(key string) (*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clock.Now().After(s.expires) {
		return nil, false
	}
	f, ok := s.cached[key]
	return f, ok
}

// remember caches f. An expired cache window restarts so a single write
// does not keep stale neighbours alive.
func (s *Service) remember(f *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if now.After(s.expires) {
		s.cached = make(map[string]*Flag)
		s.expires = now.Add(s.ttl)
	}
	s.cached[f.Key] = f
}
