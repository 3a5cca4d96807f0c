package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Operations  *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Transitions *prometheus.CounterVec
	Outcomes    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_claim_operations_total",
			Help: "Claim operations by name and result code",
		}, []string{"operation", "result"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placeclaim_claim_operation_duration_seconds",
			Help:    "Latency of claim operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_claim_transitions_total",
			Help: "Committed claim state transitions",
		}, []string{"from", "to"}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_claim_verification_outcomes_total",
			Help: "Where verified claims were routed",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveOperation(operation, result string, seconds float64) {
	m.Operations.WithLabelValues(operation, result).Inc()
	m.Latency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncOutcome(outcome string) {
	m.Outcomes.WithLabelValues(outcome).Inc()
}
