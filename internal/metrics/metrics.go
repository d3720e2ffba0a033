// Package metrics exposes prometheus instruments for hook invocations and
// full sweeps. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projector/internal/executor"
)

const namespace = "projector"

// Metrics holds the instruments and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	hookInvocations *prometheus.CounterVec
	syncJobs        *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	lastSweep       *prometheus.GaugeVec
}

// New registers the instruments, plus the Go runtime and process collectors,
// on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hookInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_invocations_total",
			Help:      "Hook handler invocations by event and outcome.",
		}, []string{"event", "handler", "outcome"}),
		syncJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_jobs_total",
			Help:      "Entities processed by full sweeps by kind and outcome.",
		}, []string{"kind", "outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of the sweep of one kind.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		lastSweep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_completion_timestamp_seconds",
			Help:      "Unix time of the last completed sweep of a kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.hookInvocations,
		m.syncJobs,
		m.syncDuration,
		m.lastSweep,
	)
	return m
}

// ObserveHook counts one handler invocation.
func (m *Metrics) ObserveHook(event, handler, outcome string) {
	if m == nil {
		return
	}
	m.hookInvocations.WithLabelValues(event, handler, outcome).Inc()
}

// ObserveSweep records the outcome of sweeping one kind.
func (m *Metrics) ObserveSweep(kind string, result executor.Result, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncJobs.WithLabelValues(kind, "fulfilled").Add(float64(result.Fulfilled))
	m.syncJobs.WithLabelValues(kind, "error").Add(float64(result.Errors))
	m.syncDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.lastSweep.WithLabelValues(kind).SetToCurrentTime()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry backing the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
