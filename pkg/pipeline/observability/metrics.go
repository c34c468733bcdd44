// Package observability holds the pipeline's Prometheus metrics and
// OpenTelemetry tracing helpers.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sessionarc"

// Metrics collects pipeline counters and timings.
type Metrics struct {
	registry *prometheus.Registry

	// Processed counts recordings that completed the pipeline, labeled by
	// the archive category and resolution method.
	Processed *prometheus.CounterVec

	// Failures counts pipeline failures by classified error code.
	Failures *prometheus.CounterVec

	// Duplicates counts recordings skipped because the canonical name was
	// already ledgered.
	Duplicates prometheus.Counter

	// ResolveDuration tracks how long identity resolution takes.
	ResolveDuration prometheus.Histogram

	// Confidence tracks the distribution of resolution confidence scores.
	Confidence prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWithRegistry(reg)
}

// NewMetricsWithRegistry creates pipeline metrics on the given registry.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "recordings_processed_total",
			Help:      "Recordings that completed the pipeline, by category and resolution method.",
		}, []string{"category", "method"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "recordings_failed_total",
			Help:      "Pipeline failures by classified error code.",
		}, []string{"code"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "recordings_duplicate_total",
			Help:      "Recordings skipped because the canonical name was already ledgered.",
		}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a recording's identity.",
			Buckets:   prometheus.DefBuckets,
		}),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "resolution_confidence",
			Help:      "Distribution of resolution confidence scores.",
			Buckets:   []float64{0, 20, 40, 60, 80, 100},
		}),
	}

	reg.MustRegister(m.Processed, m.Failures, m.Duplicates, m.ResolveDuration, m.Confidence)

	return m
}

// Registry returns the underlying registry, so callers can add collectors
// (e.g. the ledger pool stats collector).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
