package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"placeclaim/internal/ratelimit/models"
)

type Metrics struct {
	Decisions    *prometheus.CounterVec
	StoreErrors  prometheus.Counter
	CheckLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_ratelimit_decisions_total",
			Help: "Rate limit decisions by action category, limiting axis and outcome",
		}, []string{"category", "axis", "outcome"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_ratelimit_store_errors_total",
			Help: "Total number of rate limit store failures",
		}),
		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placeclaim_ratelimit_check_duration_seconds",
			Help:    "Latency of rate limit store round trips",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
	}
}

func (m *Metrics) ObserveDecision(category models.ActionCategory, result *models.RateLimitResult) {
	outcome := "allowed"
	if !result.Allowed {
		outcome = "denied"
	}
	m.Decisions.WithLabelValues(string(category), string(result.Axis), outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}

func (m *Metrics) ObserveCheckLatency(seconds float64) {
	m.CheckLatency.Observe(seconds)
}
