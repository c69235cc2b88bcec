package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/compliance-gateway/internal/cache"
	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/events"
	"github.com/sells-group/compliance-gateway/internal/metrics"
	"github.com/sells-group/compliance-gateway/internal/ratelimit"
	"github.com/sells-group/compliance-gateway/internal/record"
	"github.com/sells-group/compliance-gateway/internal/resilience"
)

const twoViolations = `[
  {"isn_dob_bis_viol":"1","bin":"1034304","issue_date":"2024-01-15T00:00:00.000",
   "violation_type":"LL6291","violation_category":"V-DOB VIOLATION - ACTIVE"},
  {"isn_dob_bis_viol":"2","bin":"1034304","issue_date":"2023-05-01T00:00:00.000",
   "violation_type":"E","violation_category":"V-DOB VIOLATION - RESOLVED"}
]`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu  sync.Mutex
	got []events.RecordsFetched
}

func (r *recordingSink) Publish(_ context.Context, ev events.RecordsFetched) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recordingSink) all() []events.RecordsFetched {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.RecordsFetched(nil), r.got...)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(srv.URL),
		WithLimiter(ratelimit.New(time.Millisecond, ratelimit.WithMaxInterval(50*time.Millisecond))),
		WithRetry(resilience.FixedDelay(3, time.Millisecond)),
		WithAttemptTimeout(2 * time.Second),
	}
	return New(append(base, opts...)...)
}

func newClockedCache(t *testing.T, clock *fakeClock) *cache.Cache {
	t.Helper()
	mem, err := cache.NewMemory(64)
	require.NoError(t, err)
	return cache.New([]cache.Backend{mem}, cache.WithClock(clock.Now))
}

func TestFetch_DecodesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/resource/"+endpoint.DatasetViolations+".json", r.URL.Path)
		assert.Equal(t, "bin='1034304'", r.URL.Query().Get("$where"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "tok-123", r.Header.Get("X-App-Token"))
		assert.Equal(t, "gateway-test", r.Header.Get("User-Agent"))
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	c := newTestClient(t, srv,
		WithTokenSource(StaticToken("tok-123")),
		WithUserAgent("gateway-test"),
		WithEventSink(sink),
	)
	v := endpoint.ViolationByID("1034304")

	got, err := Fetch(context.Background(), c, v, record.Violations)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)

	again, err := Fetch(context.Background(), c, v, record.Violations)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, int32(1), hits.Load(), "second fetch must be served from cache")

	evs := sink.all()
	require.Len(t, evs, 1)
	assert.Equal(t, "violation-by-id", evs[0].Kind)
	assert.Equal(t, v.CacheKey(), evs[0].CacheKey)
	assert.Equal(t, 2, evs[0].Count)
	assert.False(t, evs[0].Lenient)
}

func TestFetch_NoTokenOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-App-Token"]
		assert.False(t, present)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := Fetch(context.Background(), c, endpoint.PermitByID("1000001"), record.Permits)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	got, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ViolationByID("1034304"), record.Violations)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetch_LenientWhenOptionalFieldMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"isn_dob_bis_viol":"9","bin":"1034304","issue_date":"2024-02-01","violation_type":"C"}]`))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	c := newTestClient(t, srv, WithEventSink(sink))

	got, err := Fetch(context.Background(), c, endpoint.ViolationByID("1034304"), record.Violations)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].ID)

	evs := sink.all()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Lenient)
}

func TestFetch_UndecodableBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	got, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ComplaintByID("1034304"), record.Complaints)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	entries := logs.FilterMessage("gateway: response undecodable").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["error"]
	require.True(t, ok)
	assert.Contains(t, logged, "decode error")
}

func TestFetch_UndecodableBodyServesStale(t *testing.T) {
	var garbage atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if garbage.Load() {
			w.Write([]byte(`<html>maintenance</html>`))
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestClient(t, srv, WithCache(newClockedCache(t, clock)))
	ctx := context.Background()
	v := endpoint.ViolationByID("1034304")

	_, err := Fetch(ctx, c, v, record.Violations)
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	_, fresh := c.Cache().Get(ctx, v.CacheKey())
	require.False(t, fresh)

	garbage.Store(true)
	got, err := Fetch(ctx, c, v, record.Violations)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
}

func TestFetch_ThrottledThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	before := c.Limiter().Interval()

	got, err := Fetch(context.Background(), c, endpoint.ViolationByID("1034304"), record.Violations)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), hits.Load())
	assert.Greater(t, c.Limiter().Interval(), before)
}

func TestFetch_ThrottledExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ViolationByID("1034304"), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, Throttled, KindOf(err))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_BadRequest(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, `{"message":"query.soql.no-such-column"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestClient(t, srv, WithCache(newClockedCache(t, clock)))
	ctx := context.Background()

	t.Run("no cached value", func(t *testing.T) {
		fail.Store(true)
		got, err := Fetch(ctx, c, endpoint.ViolationByID("1000001"), record.Violations)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("stale value", func(t *testing.T) {
		fail.Store(false)
		v := endpoint.ViolationByID("1034304")
		_, err := Fetch(ctx, c, v, record.Violations)
		require.NoError(t, err)

		clock.Advance(3 * time.Hour)
		fail.Store(true)
		got, err := Fetch(ctx, c, v, record.Violations)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestFetch_ServerError(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestClient(t, srv, WithCache(newClockedCache(t, clock)))
	ctx := context.Background()

	fail.Store(true)
	_, err := Fetch(ctx, c, endpoint.ViolationByID("1000001"), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, http.StatusServiceUnavailable, ge.Status)
	assert.Equal(t, int32(1), hits.Load(), "server errors are not retried")

	fail.Store(false)
	v := endpoint.ViolationByID("1034304")
	_, err = Fetch(ctx, c, v, record.Violations)
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	fail.Store(true)
	got, err := Fetch(ctx, c, v, record.Violations)
	require.NoError(t, err, "stale value absorbs the server error")
	assert.Len(t, got, 2)
}

func hangUp(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	conn.Close()
}

func TestFetch_NetworkFailureRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			hangUp(t, w)
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	got, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ViolationByID("1034304"), record.Violations)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestFetch_NetworkFailureExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hangUp(t, w)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ViolationByID("1034304"), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetch_AttemptTimeoutRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	m := metrics.New()
	c := newTestClient(t, srv, WithAttemptTimeout(50*time.Millisecond), WithMetrics(m))
	got, err := Fetch(context.Background(), c, endpoint.ViolationByID("1034304"), record.Violations)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), hits.Load())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `gateway_requests_total{kind="violation-by-id",status="timeout"} 1`)
	assert.Contains(t, rr.Body.String(), `gateway_requests_total{kind="violation-by-id",status="200"} 1`)
}

func TestFetch_AttemptTimeoutsExhaustedIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithAttemptTimeout(20*time.Millisecond))
	_, err := Fetch(context.Background(), c, endpoint.ViolationByID("1034304"), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestFetch_CallerCancellationStops(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Fetch(ctx, newTestClient(t, srv), endpoint.ViolationByID("1034304"), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_InvalidRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), newTestClient(t, srv), endpoint.ViolationByID(""), record.Violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, hits.Load())
}

func TestFetch_ConcurrentMissesOnOneKey(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(twoViolations))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	v := endpoint.ViolationByID("1034304")

	var wg sync.WaitGroup
	results := make([][]record.Violation, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Fetch(context.Background(), c, v, record.Violations)
		}()
	}
	wg.Wait()

	for i := range 2 {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 2)
	}
	assert.GreaterOrEqual(t, hits.Load(), int32(1))

	data, ok := c.Cache().Get(context.Background(), v.CacheKey())
	require.True(t, ok)
	cached, err := record.Violations.Cached(data)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: Server, Endpoint: "tax-bill", Status: 502, Err: errors.New("bad gateway")}
	assert.Equal(t, "gateway: tax-bill: server error (status 502): bad gateway", err.Error())
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
}
