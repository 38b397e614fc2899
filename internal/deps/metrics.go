package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the orchestrator.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fetched    *prometheus.CounterVec
	inflight   *prometheus.GaugeVec
}

// NewMetrics creates the orchestrator metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vdlaunch",
				Subsystem: "deps",
				Name:      "operations_total",
				Help:      "Finished install and update operations",
			},
			[]string{"dependency", "mode", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vdlaunch",
				Subsystem: "deps",
				Name:      "operation_duration_seconds",
				Help:      "Duration of install and update operations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"dependency", "mode"},
		),
		fetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vdlaunch",
				Subsystem: "deps",
				Name:      "fetched_bytes_total",
				Help:      "Bytes downloaded for release assets",
			},
			[]string{"dependency"},
		),
		inflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vdlaunch",
				Subsystem: "deps",
				Name:      "inflight_operations",
				Help:      "Operations currently running",
			},
			[]string{"dependency"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.fetched, m.inflight)
	}
	return m
}

func (m *Metrics) started(dep Name) {
	m.inflight.WithLabelValues(string(dep)).Inc()
}

func (m *Metrics) finished(dep Name, mode Mode, reason string, elapsed time.Duration) {
	m.inflight.WithLabelValues(string(dep)).Dec()
	m.operations.WithLabelValues(string(dep), mode.String(), reason).Inc()
	m.duration.WithLabelValues(string(dep), mode.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) rejected(dep Name, mode Mode, reason string) {
	m.operations.WithLabelValues(string(dep), mode.String(), reason).Inc()
}

func (m *Metrics) addFetched(dep Name, n int64) {
	if n > 0 {
		m.fetched.WithLabelValues(string(dep)).Add(float64(n))
	}
}
