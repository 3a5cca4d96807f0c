package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Scores        prometheus.Histogram
	Routes        *prometheus.CounterVec
	SignalHits    *prometheus.CounterVec
	CollectErrors prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Scores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placeclaim_fraud_score",
			Help:    "Distribution of claim fraud scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		Routes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_fraud_routes_total",
			Help: "Scored claims by routing decision",
		}, []string{"route"}),
		SignalHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_fraud_signal_hits_total",
			Help: "Times each fraud signal contributed to a score",
		}, []string{"signal"}),
		CollectErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_fraud_collect_errors_total",
			Help: "Failures gathering fraud signal inputs",
		}),
	}
}
