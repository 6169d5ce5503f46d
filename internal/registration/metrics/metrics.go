package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration gate and its
// compliance client.
type Metrics struct {
	Outcomes           *prometheus.CounterVec
	ColdPathDuration   prometheus.Histogram
	ComplianceCalls    *prometheus.CounterVec
	CacheWriteFailures prometheus.Counter
	CircuitOpen        prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_registration_outcomes_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		ColdPathDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubreg_registration_cold_path_duration_seconds",
			Help:    "Duration of synchronous compliance verification on a cache miss",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		ComplianceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_compliance_calls_total",
			Help: "Compliance eligibility calls by result (ok, error, circuit_open)",
		}, []string{"result"}),
		CacheWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubreg_registration_cache_write_failures_total",
			Help: "Sync verification results that could not be written to the eligibility cache",
		}),
		CircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clubreg_compliance_circuit_open",
			Help: "1 while the compliance circuit breaker is open",
		}),
	}
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveColdPath(start time.Time) {
	if m == nil {
		return
	}
	m.ColdPathDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordComplianceCall(result string) {
	if m == nil {
		return
	}
	m.ComplianceCalls.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementCacheWriteFailure() {
	if m == nil {
		return
	}
	m.CacheWriteFailures.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
