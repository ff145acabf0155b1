// Package observability exposes descarte's Prometheus metrics and sets up
// the OpenTelemetry tracer provider.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rshade/descartecerto/internal/impact"
)

const namespace = "descarte"

// Metrics holds the impact collectors and implements impact.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	disposalsTotal    *prometheus.CounterVec
	disposedKgTotal   *prometheus.CounterVec
	incrementsTotal   *prometheus.CounterVec
	recomputesTotal   *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	storageErrors     *prometheus.CounterVec
	co2Reduction      prometheus.Gauge
	activeUsers       prometheus.Gauge
}

var _ impact.Recorder = (*Metrics)(nil)

// NewMetrics registers the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// disposalsTotal counts recorded disposals.
		// Labels: material (resolved kind)
		disposalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "disposals",
			Name:      "recorded_total",
			Help:      "Disposals recorded, by material",
		}, []string{"material"}),

		disposedKgTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "disposals",
			Name:      "weight_kg_total",
			Help:      "Kilograms of material disposed, by material",
		}, []string{"material"}),

		incrementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "increments_total",
			Help:      "Incremental updates applied to the global aggregate",
		}, []string{"material"}),

		// recomputesTotal counts full recomputes.
		// Labels: status (success, error)
		recomputesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "recomputes_total",
			Help:      "Full recomputes of the global aggregate, by outcome",
		}, []string{"status"}),

		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "recompute_duration_seconds",
			Help:      "Time taken by a full recompute",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		// storageErrors counts failed store calls.
		// Labels: op (insert_disposal, load_aggregate, ...)
		storageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Storage failures, by operation",
		}, []string{"op"}),

		co2Reduction: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "co2_reduction_kg",
			Help:      "CO2 avoided across all disposals, as last read from the aggregate",
		}),

		activeUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "active_users",
			Help:      "Users counted in the aggregate, as last read",
		}),
	}
}

// DisposalRecorded counts one disposal of weightKg.
func (m *Metrics) DisposalRecorded(material string, weightKg float64) {
	m.disposalsTotal.WithLabelValues(material).Inc()
	m.disposedKgTotal.WithLabelValues(material).Add(weightKg)
}

// AggregateIncremented counts one incremental aggregate update.
func (m *Metrics) AggregateIncremented(material string) {
	m.incrementsTotal.WithLabelValues(material).Inc()
}

// RecomputeFinished records a recompute outcome. The gauges only move on
// success.
func (m *Metrics) RecomputeFinished(status string, seconds float64, agg impact.GlobalImpact) {
	m.recomputesTotal.WithLabelValues(status).Inc()
	m.recomputeDuration.Observe(seconds)
	if status == impact.StatusSuccess {
		m.ObserveAggregate(agg)
	}
}

// StorageFailure counts a failed store call.
func (m *Metrics) StorageFailure(op string) {
	m.storageErrors.WithLabelValues(op).Inc()
}

// ObserveAggregate sets the aggregate gauges from agg.
func (m *Metrics) ObserveAggregate(agg impact.GlobalImpact) {
	m.co2Reduction.Set(agg.CO2Reduction)
	m.activeUsers.Set(float64(agg.ActiveUsers))
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
