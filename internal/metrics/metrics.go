// Package metrics exposes Prometheus collectors for upstream scraping,
// snapshot caching, background refreshes and rate limiting.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contributions"

// Metrics holds every collector the service records into.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	RefreshJobs      *prometheus.CounterVec
	RateLimitHits    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Requests made to the profile host, by page kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Latency of requests made to the profile host.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Snapshot cache lookups by result (hit, stale, miss, error).",
			},
			[]string{"result"},
		),
		RefreshJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "refresh_total",
				Help:      "Background refresh jobs by outcome.",
			},
			[]string{"outcome"},
		),
		RateLimitHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter.",
			},
			[]string{"endpoint"},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.RefreshJobs,
		m.RateLimitHits,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveFetch records one upstream request.
func (m *Metrics) ObserveFetch(kind, outcome string, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(kind, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCacheLookup records a snapshot cache lookup result.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordRefresh records a finished background refresh.
func (m *Metrics) RecordRefresh(outcome string) {
	m.RefreshJobs.WithLabelValues(outcome).Inc()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
