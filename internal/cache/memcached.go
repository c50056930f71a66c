package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const (
	keyPrefix = "airwatch:"

	// memcached treats expirations above 30 days as absolute unix times.
	maxRelativeExpiration = 30 * 24 * 60 * 60
)

// Memcached implements Cache on a memcached cluster.
type Memcached struct {
	client *memcache.Client
}

// NewMemcached creates a client over addrs. An empty list targets a local
// memcached.
func NewMemcached(addrs []string, timeout time.Duration) *Memcached {
	if len(addrs) == 0 {
		addrs = []string{"localhost:11211"}
	}
	client := memcache.New(addrs...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Memcached{client: client}
}

// Get implements Cache.
func (c *Memcached) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, err := c.client.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set implements Cache.
func (c *Memcached) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: expiration(ttl),
	})
}

// Delete implements Cache.
func (c *Memcached) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.client.Delete(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Ping checks that every server is reachable.
func (c *Memcached) Ping() error {
	return c.client.Ping()
}

// Close releases idle connections.
func (c *Memcached) Close() error {
	return c.client.Close()
}

func expiration(ttl time.Duration) int32 {
	sec := int32(ttl / time.Second)
	if sec <= 0 {
		return 1
	}
	if sec > maxRelativeExpiration {
		return maxRelativeExpiration
	}
	return sec
}
