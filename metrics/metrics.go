// Package metrics exposes toolscout's Prometheus collectors. A Metrics
// value satisfies ttlcache.Observer and ollama.CallObserver.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registered collectors.
type Metrics struct {
	cacheEvents      *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpDuration     *prometheus.HistogramVec
	toolDuration     *prometheus.HistogramVec
	searchCandidates prometheus.Histogram
}

// New registers the collectors on registerer. nil means the default
// registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		cacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscout_cache_events_total",
				Help: "Cache lookups by cache and outcome (hit, miss, expired)",
			},
			[]string{"cache", "event"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscout_upstream_duration_seconds",
				Help:    "Duration of model server calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op", "outcome"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscout_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route", "code"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscout_mcp_tool_duration_seconds",
				Help:    "Duration of MCP tool calls in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
			},
			[]string{"tool", "outcome"},
		),
		searchCandidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolscout_search_candidates",
				Help:    "Number of catalog tools ranked per search",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
}

func (m *Metrics) CacheHit(cache string)  { m.cacheEvents.WithLabelValues(cache, "hit").Inc() }
func (m *Metrics) CacheMiss(cache string) { m.cacheEvents.WithLabelValues(cache, "miss").Inc() }
func (m *Metrics) CacheExpired(cache string) {
	m.cacheEvents.WithLabelValues(cache, "expired").Inc()
}

// ObserveCall records one model server call.
func (m *Metrics) ObserveCall(op, outcome string, d time.Duration) {
	m.upstreamDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// ObserveTool records one MCP tool call. outcome is "ok" or "error".
func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	m.toolDuration.WithLabelValues(tool, outcome).Observe(d.Seconds())
}

// ObserveSearch records the candidate count of one search.
func (m *Metrics) ObserveSearch(candidates int) {
	m.searchCandidates.Observe(float64(candidates))
}
