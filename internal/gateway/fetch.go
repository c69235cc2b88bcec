package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/events"
	"github.com/sells-group/compliance-gateway/internal/metrics"
	"github.com/sells-group/compliance-gateway/internal/record"
	"github.com/sells-group/compliance-gateway/internal/resilience"
)

// maxBody caps how much of a response is read.
const maxBody = 64 << 20

type response struct {
	status int
	body   []byte
}

// Fetch returns the records for v, decoded with s.
//
// Fresh cache hits are returned without a request. Otherwise the request
// waits on the shared limiter and is sent, and the response status decides
// the outcome:
//
//   - 200: strict decode, then lenient decode, then a stale cached value,
//     then an empty list. A 200 never produces an error.
//   - 404: empty list.
//   - 429: the limiter backs off and the request is retried; once attempts
//     run out the error is Throttled.
//   - 400: stale cached value, else empty list.
//   - any other status: stale cached value, else a Server error.
//
// Transport failures and timed-out attempts are retried after a short fixed
// delay. Once attempts run out the error is Network, even when every
// attempt timed out. Only cancelling ctx itself produces Cancelled, and it
// stops at once. A body that neither decoder can read is logged as a Decode
// error and absorbed. Decoded records are cached and published to the event
// sink before Fetch returns.
func Fetch[T any](ctx context.Context, c *Client, v endpoint.Variant, s record.Schema[T]) ([]T, error) {
	kind := v.Kind().String()
	key := v.CacheKey()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "gateway.Fetch", trace.WithAttributes(
		attribute.String("gateway.kind", kind),
		attribute.String("gateway.cache_key", key),
	))
	defer span.End()
	defer func() { c.metrics.ObserveFetch(kind, time.Since(start)) }()

	if err := v.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, &Error{Kind: InvalidRequest, Endpoint: kind, Err: err}
	}

	if data, ok := c.cache.Get(ctx, key); ok {
		recs, err := s.Cached(data)
		if err == nil {
			c.metrics.ObserveCache(kind, metrics.CacheHit)
			span.SetAttributes(attribute.Bool("gateway.cache_hit", true))
			return recs, nil
		}
		zap.L().Warn("gateway: discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
	}
	c.metrics.ObserveCache(kind, metrics.CacheMiss)

	rawURL := v.URL(c.baseURL)
	var throttled bool
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(c.baseURL, kind)
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (response, error) {
		return c.attempt(ctx, kind, rawURL, &throttled)
	})
	c.metrics.SetRateInterval(c.limiter.Interval())

	if err != nil {
		ferr := classify(ctx, kind, err)
		span.RecordError(ferr)
		span.SetStatus(codes.Error, ferr.Kind.String())
		return nil, ferr
	}
	if !throttled {
		c.limiter.Success()
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	switch {
	case resp.status >= 200 && resp.status < 300:
		return decode(ctx, c, v, s, rawURL, resp.body), nil

	case resp.status == http.StatusNotFound:
		return []T{}, nil

	case resp.status == http.StatusBadRequest:
		zap.L().Warn("gateway: upstream rejected query",
			zap.String("kind", kind), zap.String("url", rawURL), zap.ByteString("body", snippet(resp.body)))
		if recs, ok := stale(ctx, c, kind, key, s); ok {
			return recs, nil
		}
		return []T{}, nil

	default:
		if recs, ok := stale(ctx, c, kind, key, s); ok {
			zap.L().Warn("gateway: serving stale records after upstream error",
				zap.String("kind", kind), zap.Int("status", resp.status))
			return recs, nil
		}
		ferr := &Error{
			Kind:     Server,
			Endpoint: kind,
			Status:   resp.status,
			Err:      eris.Errorf("unexpected status %d", resp.status),
		}
		span.SetStatus(codes.Error, ferr.Kind.String())
		return nil, ferr
	}
}

// attempt performs one rate-limited request. Throttling, transport errors
// and timeouts come back as transient errors so the retry loop repeats
// them; every other status is returned as a response.
func (c *Client) attempt(ctx context.Context, kind, rawURL string, throttled *bool) (response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return response{}, err
	}

	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, &Error{Kind: InvalidRequest, Endpoint: kind, Err: eris.Wrap(err, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if tok := c.token(ctx); tok != "" {
		req.Header.Set("X-App-Token", tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		status := "error"
		if ctx.Err() == nil && resilience.IsCancellation(err) {
			status = "timeout"
		}
		c.metrics.ObserveRequest(kind, status)
		return response{}, resilience.NewTransientError(eris.Wrap(err, "send"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.metrics.ObserveRequest(kind, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusTooManyRequests {
		*throttled = true
		c.limiter.Throttled()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return response{}, resilience.NewTransientError(eris.New("upstream throttled the request"), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{}, resilience.NewTransientError(eris.Wrap(err, "read body"), 0)
	}
	return response{status: resp.StatusCode, body: body}, nil
}

// classify maps the final retry error onto a gateway error.
func classify(ctx context.Context, kind string, err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	switch {
	case ctx.Err() != nil:
		return &Error{Kind: Cancelled, Endpoint: kind, Err: err}
	case resilience.StatusOf(err) == http.StatusTooManyRequests:
		return &Error{Kind: Throttled, Endpoint: kind, Status: http.StatusTooManyRequests, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: Cancelled, Endpoint: kind, Err: err}
	default:
		return &Error{Kind: Network, Endpoint: kind, Err: err}
	}
}

func decode[T any](ctx context.Context, c *Client, v endpoint.Variant, s record.Schema[T], rawURL string, body []byte) []T {
	kind := v.Kind().String()
	key := v.CacheKey()

	recs, err := s.Strict(body)
	lenient := false
	if err != nil {
		c.metrics.ObserveDecodeFallback(kind)
		recs = s.Lenient(body)
		lenient = true
		zap.L().Warn("gateway: strict decode failed, decoded leniently",
			zap.String("kind", kind), zap.Int("records", len(recs)), zap.Error(err))
		if len(recs) == 0 {
			derr := &Error{Kind: Decode, Endpoint: kind, Err: err}
			trace.SpanFromContext(ctx).RecordError(derr)
			zap.L().Warn("gateway: response undecodable", zap.String("kind", kind), zap.Error(derr))
			if cached, ok := stale(ctx, c, kind, key, s); ok {
				return cached
			}
			return []T{}
		}
	}

	data, err := json.Marshal(recs)
	if err != nil {
		zap.L().Error("gateway: encode records for cache", zap.String("kind", kind), zap.Error(err))
		return recs
	}
	c.cache.Set(ctx, key, data, c.ttl.TTL(v.Tier()))

	ev := events.NewRecordsFetched(kind, key, rawURL, len(recs), data)
	ev.Lenient = lenient
	if err := c.sink.Publish(ctx, ev); err != nil {
		zap.L().Warn("gateway: publish fetch event", zap.String("kind", kind), zap.Error(err))
	}
	return recs
}

func stale[T any](ctx context.Context, c *Client, kind, key string, s record.Schema[T]) ([]T, bool) {
	data, ok := c.cache.GetStale(ctx, key)
	if !ok {
		return nil, false
	}
	recs, err := s.Cached(data)
	if err != nil {
		return nil, false
	}
	c.metrics.ObserveCache(kind, metrics.CacheStale)
	return recs, true
}

func snippet(b []byte) []byte {
	if len(b) > 256 {
		return b[:256]
	}
	return b
}
