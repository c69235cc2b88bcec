// Package cache implements the tiered expiring cache that fronts the
// open-data endpoints. Values are opaque byte slices; entries are replaced
// whole, so a read racing a write sees either the old or the new value.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Entry is a cached value and the instant it stops being fresh.
type Entry struct {
	Value     []byte    `json:"v"`
	ExpiresAt time.Time `json:"e"`
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Backend is one storage layer of the cache. Backends keep expired entries
// around (until evicted) so callers can fall back to stale data.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, e Entry) error
}

// Cache layers one or more backends, fastest first. Fresh hits found in a
// slower layer are copied into the faster ones.
type Cache struct {
	layers []Backend
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given layers.
func New(layers []Backend, opts ...Option) *Cache {
	c := &Cache{layers: layers, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if a fresh entry exists. Absent and expired
// entries are misses. Backend errors are logged and treated as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	now := c.now()
	for i, layer := range c.layers {
		e, ok, err := layer.Load(ctx, key)
		if err != nil {
			zap.L().Debug("cache: load failed", zap.String("key", key), zap.Int("layer", i), zap.Error(err))
			continue
		}
		if !ok || e.Expired(now) {
			continue
		}
		c.promote(ctx, key, e, i)
		return e.Value, true
	}
	return nil, false
}

// GetStale returns the most recent value for key regardless of expiry.
func (c *Cache) GetStale(ctx context.Context, key string) ([]byte, bool) {
	var (
		best  Entry
		found bool
	)
	for _, layer := range c.layers {
		e, ok, err := layer.Load(ctx, key)
		if err != nil || !ok {
			continue
		}
		if !found || e.ExpiresAt.After(best.ExpiresAt) {
			best, found = e, true
		}
	}
	return best.Value, found
}

// Set stores value under key with expiry now+ttl in every layer.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	e := Entry{Value: value, ExpiresAt: c.now().Add(ttl)}
	for i, layer := range c.layers {
		if err := layer.Store(ctx, key, e); err != nil {
			zap.L().Warn("cache: store failed", zap.String("key", key), zap.Int("layer", i), zap.Error(err))
		}
	}
}

func (c *Cache) promote(ctx context.Context, key string, e Entry, found int) {
	for i := 0; i < found; i++ {
		if err := c.layers[i].Store(ctx, key, e); err != nil {
			zap.L().Debug("cache: promote failed", zap.String("key", key), zap.Int("layer", i), zap.Error(err))
		}
	}
}
