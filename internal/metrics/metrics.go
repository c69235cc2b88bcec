// Package metrics holds the Prometheus collectors for gateway fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)

// Gateway is the set of gateway collectors. A nil *Gateway is valid and
// records nothing.
type Gateway struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	cacheResults   *prometheus.CounterVec
	decodeFallback *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	rateInterval   prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Gateway {
	g := &Gateway{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Upstream HTTP requests by endpoint kind and response status.",
		}, []string{"kind", "status"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_cache_total",
			Help: "Cache lookups by endpoint kind and outcome.",
		}, []string{"kind", "result"}),
		decodeFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_decode_fallback_total",
			Help: "Responses that failed strict decoding and were decoded leniently.",
		}, []string{"kind"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_fetch_duration_seconds",
			Help:    "End-to-end fetch latency including retries.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		rateInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_rate_limit_interval_seconds",
			Help: "Current minimum spacing between upstream requests.",
		}),
	}
	g.registry.MustRegister(
		g.requests, g.cacheResults, g.decodeFallback, g.fetchDuration, g.rateInterval,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return g
}

// Handler serves the registry in the Prometheus text format.
func (g *Gateway) Handler() http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (g *Gateway) Registry() *prometheus.Registry {
	if g == nil {
		return nil
	}
	return g.registry
}

// ObserveRequest counts one upstream response. status is the HTTP code, or
// a short error class for transport failures.
func (g *Gateway) ObserveRequest(kind, status string) {
	if g == nil {
		return
	}
	g.requests.WithLabelValues(kind, status).Inc()
}

// ObserveCache counts one cache lookup.
func (g *Gateway) ObserveCache(kind, result string) {
	if g == nil {
		return
	}
	g.cacheResults.WithLabelValues(kind, result).Inc()
}

func (g *Gateway) ObserveDecodeFallback(kind string) {
	if g == nil {
		return
	}
	g.decodeFallback.WithLabelValues(kind).Inc()
}

func (g *Gateway) ObserveFetch(kind string, d time.Duration) {
	if g == nil {
		return
	}
	g.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetRateInterval records the limiter's current spacing.
func (g *Gateway) SetRateInterval(d time.Duration) {
	if g == nil {
		return
	}
	g.rateInterval.Set(d.Seconds())
}
