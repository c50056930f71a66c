package featureflags

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// InMemoryRepository keeps flags in process memory. It backs the API when
// Postgres is off, so overrides made through the admin endpoints last
// until the process restarts.
type InMemoryRepository struct {
	clock clockwork.Clock

	mu    sync.RWMutex
	flags map[string]Flag
}

// NewInMemoryRepository returns a repository seeded with DefaultFlags.
func NewInMemoryRepository(clock clockwork.Clock) *InMemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return NewInMemoryRepositoryWithFlags(clock, DefaultFlags(clock.Now()))
}

// NewInMemoryRepositoryWithFlags returns a repository holding exactly flags.
func NewInMemoryRepositoryWithFlags(clock clockwork.Clock, flags map[string]*Flag) *InMemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &InMemoryRepository{clock: clock, flags: make(map[string]Flag, len(flags))}
	for key, f := range flags {
		stored := *f
		stored.Key = key
		r.flags[key] = stored
	}
	return r
}

func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	f, ok := r.flags[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &f, nil
}

func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for key, f := range r.flags {
		out[key] = &f
	}
	return out, nil
}

// SetFlag is a single-flag SetFlags.
func (r *InMemoryRepository) SetFlag(ctx context.Context, flag *Flag) error {
	return r.SetFlags(ctx, []*Flag{flag})
}

// SetFlags stamps every flag with the repository clock and stores them
// under one lock.
func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range flags {
		r.flags[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
	return nil
}

func (r *InMemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}
