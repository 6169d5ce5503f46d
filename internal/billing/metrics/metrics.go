package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Obligations *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Obligations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubreg_billing_obligation_triggers_total",
			Help: "Obligation triggers by kind and result (applied, duplicate, failed)",
		}, []string{"trigger_kind", "result"}),
	}
}

func (m *Metrics) RecordTrigger(kind, result string) {
	if m == nil {
		return
	}
	m.Obligations.WithLabelValues(kind, result).Inc()
}
