package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider as reported on
// /v1/ops/status.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// ConsecutiveFailures counts outcomes since the last success, including
	// short-circuited calls the breaker never lets through.
	ConsecutiveFailures int
}

// Registry tracks provider clients and their most recent outcomes.
type Registry struct {
	clock clockwork.Clock

	mu        sync.RWMutex
	providers map[string]*providerEntry
}

type providerEntry struct {
	client      *Client
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
	streak      int
}

// GlobalRegistry is shared by the API and worker processes.
var GlobalRegistry = NewRegistry()

// NewRegistry creates an empty registry using the wall clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(clockwork.NewRealClock())
}

// NewRegistryWithClock creates an empty registry stamped by clock.
func NewRegistryWithClock(clock clockwork.Clock) *Registry {
	return &Registry{clock: clock, providers: make(map[string]*providerEntry)}
}

// Register adds a provider client. Registering a name again replaces the
// client and clears its history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	r.providers[name] = &providerEntry{client: client}
	r.mu.Unlock()
}

// RecordSuccess stamps the last success for name and ends any failure
// streak. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(e *providerEntry, now time.Time) {
		e.lastSuccess = now
		e.streak = 0
	})
}

// RecordFailure stamps the last failure for name with err's message.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(e *providerEntry, now time.Time) {
		e.lastFailure = now
		e.streak++
		if err != nil {
			e.lastError = err.Error()
		}
	})
}

func (r *Registry) update(name string, fn func(*providerEntry, time.Time)) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		fn(e, now)
	}
}

// GetHealth returns the health of name, or nil when not registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.providers[name]; ok {
		return e.snapshot(name)
	}
	return nil
}

// GetAllHealth returns every provider's health sorted by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	out := make([]*ProviderHealth, 0, len(r.providers))
	for name, e := range r.providers {
		out = append(out, e.snapshot(name))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (e *providerEntry) snapshot(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:                name,
		CircuitState:        e.client.CircuitBreakerState(),
		Counts:              e.client.CircuitBreakerCounts(),
		LastSuccessAt:       optionalTime(e.lastSuccess),
		LastFailureAt:       optionalTime(e.lastFailure),
		LastError:           e.lastError,
		ConsecutiveFailures: e.streak,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
