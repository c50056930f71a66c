// Package cache stores encoded readings with a TTL, either in process
// memory or in memcached so that API replicas share resolutions.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL store. Get returns (nil, false, nil) on a
// miss or an expired entry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
