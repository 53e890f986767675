package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds sweeper collectors.
type Metrics struct {
	Runs        prometheus.Counter
	Transitions *prometheus.CounterVec
	Failures    prometheus.Counter
	Duration    prometheus.Histogram
}

// NewMetrics creates sweeper collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvascue_sweeper_runs_total",
			Help: "Completed billing sweeps",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canvascue_sweeper_actions_total",
			Help: "Account changes applied by the billing sweeper",
		}, []string{"action"}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvascue_sweeper_failures_total",
			Help: "Accounts the billing sweeper failed to process",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canvascue_sweeper_duration_seconds",
			Help:    "Time spent per billing sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Runs, m.Transitions, m.Failures, m.Duration)
	}
	return m
}
