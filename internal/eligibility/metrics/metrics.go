package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the eligibility cache.
type Metrics struct {
	CacheLookups   *prometheus.CounterVec
	LookupDuration prometheus.Histogram
	Mutations      *prometheus.CounterVec
	StaleSyncSkips prometheus.Counter
}

// New creates and registers the eligibility cache metrics.
func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_eligibility_cache_lookups_total",
			Help: "Eligibility cache lookups by result (hit, miss)",
		}, []string{"result"}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubreg_eligibility_cache_lookup_duration_seconds",
			Help:    "Duration of eligibility cache lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_eligibility_cache_mutations_total",
			Help: "Eligibility cache writes by source",
		}, []string{"source"}),
		StaleSyncSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubreg_eligibility_cache_stale_sync_skips_total",
			Help: "Sync overwrites skipped because an event updated the entry after verification began",
		}),
	}
}

func (m *Metrics) RecordHit(start time.Time) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
	m.LookupDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordMiss(start time.Time) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
	m.LookupDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordMutation(source string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordStaleSyncSkip() {
	if m == nil {
		return
	}
	m.StaleSyncSkips.Inc()
}
