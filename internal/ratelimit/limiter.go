// Package ratelimit enforces a minimum spacing between outbound requests
// with exponential backoff when the upstream signals throttling.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultInterval is the minimum spacing used when none is configured.
	DefaultInterval = 250 * time.Millisecond
	// DefaultMaxInterval caps the backoff.
	DefaultMaxInterval = 30 * time.Second
)

// Limiter spaces requests at least Interval apart. A burst of one makes the
// underlying token bucket behave as strict spacing: the first Wait passes
// immediately and every later Wait blocks for whatever remains of the
// interval since the previous admission. Admission decisions are serialized
// inside rate.Limiter, so concurrent callers are queued in arrival order.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	base     time.Duration
	max      time.Duration
	attempt  int
	interval time.Duration
	onChange func(time.Duration)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMaxInterval caps the backoff interval.
func WithMaxInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.max = d
		}
	}
}

// WithOnChange registers a callback invoked whenever the interval changes.
func WithOnChange(fn func(time.Duration)) Option {
	return func(l *Limiter) { l.onChange = fn }
}

// New creates a Limiter with the given base interval.
func New(base time.Duration, opts ...Option) *Limiter {
	if base <= 0 {
		base = DefaultInterval
	}
	l := &Limiter{
		base:     base,
		max:      DefaultMaxInterval,
		interval: base,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.max < base {
		l.max = base
	}
	l.limiter = rate.NewLimiter(rate.Every(base), 1)
	return l
}

// Wait blocks until the caller may send its request or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "ratelimit: wait")
	}
	return nil
}

// Throttled doubles the interval (base * 2^attempt), capped at the maximum.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	l.attempt++
	next := l.base << l.attempt
	if next <= 0 || next > l.max {
		next = l.max
	}
	l.set(next)
	attempt := l.attempt
	l.mu.Unlock()

	zap.L().Warn("ratelimit: throttled by upstream, backing off",
		zap.Int("attempt", attempt),
		zap.Duration("interval", next),
	)
}

// Success resets the interval to its base after a request that was never
// throttled.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attempt == 0 {
		return
	}
	l.attempt = 0
	l.set(l.base)
}

// Interval returns the current minimum spacing between requests.
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// set must be called with mu held.
func (l *Limiter) set(d time.Duration) {
	l.interval = d
	l.limiter.SetLimit(rate.Every(d))
	if l.onChange != nil {
		l.onChange(d)
	}
}
