package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Verdicts *prometheus.CounterVec
	Denied   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_review_verdicts_total",
			Help: "Review verdicts by decision and whether they were automatic",
		}, []string{"decision", "mode"}),
		Denied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_review_unauthorized_total",
			Help: "Review attempts by actors without review authority",
		}),
	}
}

func (m *Metrics) IncVerdict(decision string, automatic bool) {
	mode := "manual"
	if automatic {
		mode = "automatic"
	}
	m.Verdicts.WithLabelValues(decision, mode).Inc()
}
