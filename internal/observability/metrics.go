// Package observability exposes resolver and cache metrics to Prometheus.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

const namespace = "airwatch"

// Metrics holds the Prometheus collectors for the resolver, the reading
// cache and the refresh worker.
type Metrics struct {
	registry *prometheus.Registry

	AdapterAttempts *prometheus.CounterVec   // labels: source, outcome
	AdapterDuration *prometheus.HistogramVec // labels: source
	Resolutions     *prometheus.CounterVec   // labels: source
	Cache           *prometheus.CounterVec   // labels: result
	RefreshPoints   *prometheus.CounterVec   // labels: outcome
}

var (
	_ airquality.Recorder      = (*Metrics)(nil)
	_ airquality.CacheRecorder = (*Metrics)(nil)
)

// NewMetrics creates the collectors on a private registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AdapterAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_attempts_total",
			Help:      "Source adapter attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		AdapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Source adapter attempt duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"source"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolved readings by the source that produced them.",
		}, []string{"source"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Reading cache lookups by result.",
		}, []string{"result"}),
		RefreshPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_points_total",
			Help:      "Background refresh points by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AdapterAttempts,
		m.AdapterDuration,
		m.Resolutions,
		m.Cache,
		m.RefreshPoints,
	)

	return m
}

// ObserveAttempt implements airquality.Recorder.
func (m *Metrics) ObserveAttempt(source airquality.Source, outcome string, duration time.Duration) {
	m.AdapterAttempts.WithLabelValues(string(source), outcome).Inc()
	if outcome != airquality.OutcomeSkipped {
		m.AdapterDuration.WithLabelValues(string(source)).Observe(duration.Seconds())
	}
}

// ObserveResolution implements airquality.Recorder.
func (m *Metrics) ObserveResolution(source airquality.Source) {
	m.Resolutions.WithLabelValues(string(source)).Inc()
}

// ObserveCache implements airquality.CacheRecorder.
func (m *Metrics) ObserveCache(result string) {
	m.Cache.WithLabelValues(result).Inc()
}

// ObserveRefresh counts one refreshed point.
func (m *Metrics) ObserveRefresh(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.RefreshPoints.WithLabelValues(outcome).Inc()
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
