package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/rotisserie/eris"
)

// DefaultStaleRetention is how long an entry outlives its expiry in Redis so
// it can still serve as an error fallback.
const DefaultStaleRetention = 7 * 24 * time.Hour

// RedisOption configures the Redis backend.
type RedisOption func(*redisConfig)

type redisConfig struct {
	opts      *redis.Options
	prefix    string
	retention time.Duration
}

// WithKeyPrefix namespaces every key written by the backend.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *redisConfig) { c.prefix = prefix }
}

// WithStaleRetention sets how long expired entries are kept.
func WithStaleRetention(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) RedisOption {
	return func(c *redisConfig) { c.opts.PoolSize = n }
}

// WithDialTimeout sets the dial timeout.
func WithDialTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) { c.opts.DialTimeout = d }
}

// Redis is a shared cache layer backed by a Redis server.
type Redis struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr string, opts ...RedisOption) (*Redis, error) {
	if addr == "" {
		return nil, eris.New("cache: redis address is required")
	}
	cfg := &redisConfig{
		opts: &redis.Options{
			Addr:         addr,
			PoolSize:     32,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		},
		prefix:    "gw:",
		retention: DefaultStaleRetention,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	rdb := redis.NewClient(cfg.opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrap(err, "cache: redis ping")
	}
	return &Redis{rdb: rdb, prefix: cfg.prefix, retention: cfg.retention}, nil
}

// Load implements Backend.
func (r *Redis) Load(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrap(err, "cache: redis get")
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, eris.Wrap(err, "cache: decode redis entry")
	}
	return e, true, nil
}

// Store implements Backend.
func (r *Redis) Store(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "cache: encode redis entry")
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.prefix+key, raw, ttl+r.retention).Err(); err != nil {
		return eris.Wrap(err, "cache: redis set")
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
