package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance module.
type Metrics struct {
	ChecksTotal          *prometheus.CounterVec
	CheckDuration        prometheus.Histogram
	DocumentsRecorded    prometheus.Counter
	AnnouncementsTotal   *prometheus.CounterVec
	AnnouncementFailures prometheus.Counter
}

// New creates and registers the compliance metrics.
func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_compliance_checks_total",
			Help: "Eligibility computations by verdict",
		}, []string{"verdict"}),
		CheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubreg_compliance_check_duration_seconds",
			Help:    "Duration of eligibility computations including document lookup",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DocumentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubreg_compliance_documents_recorded_total",
			Help: "Documents recorded (uploads and renewals)",
		}),
		AnnouncementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_compliance_announcements_total",
			Help: "Document lifecycle events published, by event type",
		}, []string{"event_type"}),
		AnnouncementFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubreg_compliance_announcement_failures_total",
			Help: "Document lifecycle events that failed to publish and await the next sweep",
		}),
	}
}

func (m *Metrics) ObserveCheck(verdict string, start time.Time) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(verdict).Inc()
	m.CheckDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementDocumentsRecorded() {
	if m == nil {
		return
	}
	m.DocumentsRecorded.Inc()
}

func (m *Metrics) IncrementAnnounced(eventType string) {
	if m == nil {
		return
	}
	m.AnnouncementsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncrementAnnouncementFailure() {
	if m == nil {
		return
	}
	m.AnnouncementFailures.Inc()
}
