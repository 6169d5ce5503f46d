package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts message outcomes per topic. A nil *Metrics is a no-op.
type Metrics struct {
	Messages *prometheus.CounterVec
}

// NewMetrics registers consumer metrics for the given group.
func NewMetrics(group string) *Metrics {
	return &Metrics{
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "clubreg_consumer_messages_total",
			Help:        "Consumed messages by topic and outcome (acked, retried, dead_lettered)",
			ConstLabels: prometheus.Labels{"group": group},
		}, []string{"topic", "outcome"}),
	}
}

func (m *Metrics) observe(topic, outcome string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(topic, outcome).Inc()
}
