// Package gateway fetches compliance records from the municipal open-data
// endpoints. A Client owns the response cache and the request limiter; it
// is safe for concurrent use and is meant to be shared by every caller in
// the process.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/cache"
	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/events"
	"github.com/sells-group/compliance-gateway/internal/metrics"
	"github.com/sells-group/compliance-gateway/internal/ratelimit"
	"github.com/sells-group/compliance-gateway/internal/resilience"
)

const (
	defaultUserAgent      = "compliance-gateway/1.0"
	defaultAttemptTimeout = 30 * time.Second
	tracerName            = "github.com/sells-group/compliance-gateway/internal/gateway"
)

// TokenSource supplies the application token sent with each request.
// An empty token means requests go out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed application token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client issues open-data requests.
type Client struct {
	baseURL        string
	http           *http.Client
	cache          *cache.Cache
	ttl            cache.TTLPolicy
	limiter        *ratelimit.Limiter
	retry          resilience.RetryConfig
	attemptTimeout time.Duration
	tokens         TokenSource
	userAgent      string
	sink           events.Sink
	metrics        *metrics.Gateway
	tracer         trace.Tracer

	tokenWarning sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another open-data host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithCache(ch *cache.Cache) Option     { return func(c *Client) { c.cache = ch } }
func WithTTLPolicy(p cache.TTLPolicy) Option {
	return func(c *Client) { c.ttl = p }
}
func WithLimiter(l *ratelimit.Limiter) Option { return func(c *Client) { c.limiter = l } }
func WithTokenSource(ts TokenSource) Option   { return func(c *Client) { c.tokens = ts } }
func WithEventSink(s events.Sink) Option      { return func(c *Client) { c.sink = s } }
func WithMetrics(m *metrics.Gateway) Option   { return func(c *Client) { c.metrics = m } }
func WithTracer(t trace.Tracer) Option        { return func(c *Client) { c.tracer = t } }

// WithRetry sets the bounded retry policy used for throttling, transport
// failures and per-attempt timeouts.
func WithRetry(r resilience.RetryConfig) Option { return func(c *Client) { c.retry = r } }

// WithAttemptTimeout bounds a single HTTP attempt. A timed-out attempt is
// retried like a transport failure.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New builds a Client. Unset collaborators get in-memory defaults.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:        endpoint.DefaultBaseURL,
		ttl:            cache.DefaultTTLPolicy(),
		retry:          resilience.FixedDelay(3, 500*time.Millisecond),
		attemptTimeout: defaultAttemptTimeout,
		userAgent:      defaultUserAgent,
		sink:           events.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if c.cache == nil {
		// lru.New only rejects non-positive sizes.
		mem, _ := cache.NewMemory(cache.DefaultMaxEntries)
		c.cache = cache.New([]cache.Backend{mem})
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultInterval, ratelimit.WithOnChange(c.metrics.SetRateInterval))
	}
	if c.tokens == nil {
		c.tokens = StaticToken("")
	}
	if c.sink == nil {
		c.sink = events.Nop{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.metrics.SetRateInterval(c.limiter.Interval())
	return c
}

// Limiter returns the client's shared request limiter.
func (c *Client) Limiter() *ratelimit.Limiter { return c.limiter }

// Cache returns the client's response cache.
func (c *Client) Cache() *cache.Cache { return c.cache }

// BaseURL returns the open-data host requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) token(ctx context.Context) string {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		zap.L().Warn("gateway: token lookup failed, sending unauthenticated", zap.Error(err))
		return ""
	}
	if tok == "" {
		c.tokenWarning.Do(func() {
			zap.L().Warn("gateway: no app token configured; requests are subject to shared throttling")
		})
	}
	return tok
}
