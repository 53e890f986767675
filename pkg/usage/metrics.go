package usage

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds usage accounting counters.
type Metrics struct {
	Increments      prometheus.Counter
	QuotaRejections *prometheus.CounterVec
	Resets          prometheus.Counter
}

// NewMetrics creates usage counters and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Increments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvascue_usage_increments_total",
			Help: "Design requests counted against a monthly quota",
		}),
		QuotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canvascue_quota_rejections_total",
			Help: "Usage updates rejected because a quota was reached",
		}, []string{"kind"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvascue_usage_resets_total",
			Help: "Monthly usage counters reset at a calendar month boundary",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Increments, m.QuotaRejections, m.Resets)
	}
	return m
}

func (m *Metrics) rejected(kind QuotaKind) {
	m.QuotaRejections.WithLabelValues(string(kind)).Inc()
}
