package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/cache"
	"github.com/sells-group/compliance-gateway/internal/config"
	"github.com/sells-group/compliance-gateway/internal/events"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/lookup"
	"github.com/sells-group/compliance-gateway/internal/metrics"
	"github.com/sells-group/compliance-gateway/internal/ratelimit"
	"github.com/sells-group/compliance-gateway/internal/resilience"
	"github.com/sells-group/compliance-gateway/internal/store"
)

// gatewayEnv holds the client and its collaborators for the fetch, grouped,
// snapshot, history and serve commands.
type gatewayEnv struct {
	Client   *gateway.Client
	Selector *lookup.Selector
	Metrics  *metrics.Gateway
	Store    store.Store // may be nil
	closers  []io.Closer
}

// Close releases the store, the event producer and the Redis connection.
func (e *gatewayEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initGateway builds the environment from the loaded config. Callers should
// defer env.Close().
func initGateway(ctx context.Context, mode string) (*gatewayEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return newGatewayEnv(ctx, cfg)
}

func newGatewayEnv(ctx context.Context, c *config.Config) (*gatewayEnv, error) {
	env := &gatewayEnv{Metrics: metrics.New()}

	mem, err := cache.NewMemory(c.Cache.MaxEntries)
	if err != nil {
		return nil, err
	}
	layers := []cache.Backend{mem}
	if c.Cache.RedisAddr != "" {
		var rdb *cache.Redis
		err := resilience.Do(ctx, startupRetry("redis"), func(ctx context.Context) error {
			var err error
			rdb, err = cache.NewRedis(ctx, c.Cache.RedisAddr, c.Cache.RedisOptions()...)
			return err
		})
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, rdb)
		layers = append(layers, rdb)
	}

	var sinks events.Multi
	st, err := initStore(ctx, c.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	if st != nil {
		env.Store = st
		env.closers = append(env.closers, st)
		sinks = append(sinks, st)
	}
	if len(c.Kafka.Brokers) > 0 {
		ks, err := events.NewKafkaSink(c.Kafka.Brokers, c.Kafka.Topic)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, ks)
		sinks = append(sinks, ks)
	}

	limiter := ratelimit.New(c.OpenData.MinInterval(),
		ratelimit.WithMaxInterval(c.OpenData.MaxBackoff()),
		ratelimit.WithOnChange(env.Metrics.SetRateInterval),
	)

	opts := []gateway.Option{
		gateway.WithBaseURL(c.OpenData.BaseURL),
		gateway.WithUserAgent(c.OpenData.UserAgent),
		gateway.WithTokenSource(gateway.StaticToken(c.OpenData.AppToken)),
		gateway.WithCache(cache.New(layers)),
		gateway.WithTTLPolicy(c.Cache.TTLPolicy()),
		gateway.WithLimiter(limiter),
		gateway.WithRetry(c.OpenData.Retry()),
		gateway.WithMetrics(env.Metrics),
	}
	if c.OpenData.TimeoutSecs > 0 {
		opts = append(opts, gateway.WithAttemptTimeout(c.OpenData.Timeout()))
	}
	if len(sinks) > 0 {
		opts = append(opts, gateway.WithEventSink(sinks))
	}

	env.Client = gateway.New(opts...)
	env.Selector = lookup.NewSelector(env.Client)
	return env, nil
}

// startupRetry retries dependencies that may still be starting alongside
// the gateway.
func startupRetry(name string) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.OnRetry = resilience.RetryLogger(name, "startup")
	return rc
}

// initStore opens and migrates the configured fetch-history store. The
// "none" driver returns a nil store.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "gateway.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := resilience.Do(ctx, startupRetry(sc.Driver), st.Migrate); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
