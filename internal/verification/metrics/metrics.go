package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CodesIssued  *prometheus.CounterVec
	Checks       *prometheus.CounterVec
	SMSDelivered prometheus.Counter
	SMSFailed    prometheus.Counter
	SMSDropped   prometheus.Counter
	SMSQueued    prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		CodesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_verification_codes_issued_total",
			Help: "Verification codes issued, by kind (initial or resend)",
		}, []string{"kind"}),
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_verification_checks_total",
			Help: "Code checks by outcome",
		}, []string{"outcome"}),
		SMSDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_verification_sms_delivered_total",
			Help: "SMS messages accepted by the provider",
		}),
		SMSFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_verification_sms_failed_total",
			Help: "SMS messages the provider rejected",
		}),
		SMSDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_verification_sms_dropped_total",
			Help: "SMS messages dropped because the dispatch queue was full or closed",
		}),
		SMSQueued: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "placeclaim_verification_sms_queue_depth",
			Help: "SMS messages waiting for a dispatch worker",
		}),
	}
}

func (m *Metrics) IncIssued(kind string) {
	m.CodesIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncCheck(outcome string) {
	m.Checks.WithLabelValues(outcome).Inc()
}
