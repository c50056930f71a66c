package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when a key has no stored override.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores operator overrides. A key missing from the store
// evaluates to its entry in DefaultFlags.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)

	// GetAllFlags returns every stored flag keyed by Flag.Key.
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags upserts every flag or none.
	SetFlags(ctx context.Context, flags []*Flag) error

	// DeleteFlag drops an override, returning ErrFlagNotFound when there
	// is none.
	DeleteFlag(ctx context.Context, key string) error
}
