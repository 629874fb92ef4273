package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for one jbench command run. Every method is
// safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	Comparisons        *prometheus.CounterVec
	Measurements       prometheus.Counter
	RatioMin           prometheus.Gauge
	RatioMax           prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbench_invocations_total",
			Help: "Total number of benchmark executable invocations",
		},
		[]string{"subtask", "outcome"},
	)

	m.InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jbench_invocation_duration_seconds",
			Help:    "Wall time of benchmark executable invocations",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"subtask"},
	)

	m.Comparisons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbench_comparisons_total",
			Help: "Comparator results by bucket",
		},
		[]string{"bucket"},
	)

	m.Measurements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jbench_measurements_total",
			Help: "Distinct template measurements resolved",
		},
	)

	m.RatioMin = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jbench_ratio_min",
			Help: "Smallest current/reference ratio of the last comparator run",
		},
	)

	m.RatioMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jbench_ratio_max",
			Help: "Largest current/reference ratio of the last comparator run",
		},
	)

	m.registry.MustRegister(
		m.Invocations,
		m.InvocationDuration,
		m.Comparisons,
		m.Measurements,
		m.RatioMin,
		m.RatioMax,
	)

	return m
}

// ObserveInvocation records one subprocess call.
func (m *Metrics) ObserveInvocation(subtask string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Invocations.WithLabelValues(subtask, outcome).Inc()
	m.InvocationDuration.WithLabelValues(subtask).Observe(elapsed.Seconds())
}

// ObserveComparison counts one classified comparator entry. Failed entries use bucket "ERROR".
func (m *Metrics) ObserveComparison(bucket string) {
	if m == nil {
		return
	}
	m.Comparisons.WithLabelValues(bucket).Inc()
}

// ObserveMeasurement counts one resolved template measurement.
func (m *Metrics) ObserveMeasurement() {
	if m == nil {
		return
	}
	m.Measurements.Inc()
}

// SetRatioRange publishes the min/max ratio of a comparator run.
func (m *Metrics) SetRatioRange(lo, hi float64) {
	if m == nil {
		return
	}
	m.RatioMin.Set(lo)
	m.RatioMax.Set(hi)
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
