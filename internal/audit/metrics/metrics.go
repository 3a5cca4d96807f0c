package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the claim audit log and its outbox.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	AppendFailures  prometheus.Counter

	OutboxPending         prometheus.Gauge
	OutboxPublished       prometheus.Counter
	OutboxPublishFailures prometheus.Counter
	OutboxPublishDuration prometheus.Histogram
	OutboxBatchSize       prometheus.Histogram
}

// New creates a new Metrics instance with all audit metrics registered.
func New() *Metrics {
	return &Metrics{
		EntriesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placeclaim_audit_entries_total",
			Help: "Claim audit entries appended, by action and actor type",
		}, []string{"action", "actor_type"}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_audit_append_failures_total",
			Help: "Total number of failed audit appends",
		}),
		OutboxPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "placeclaim_audit_outbox_pending",
			Help: "Current number of unpublished audit outbox entries",
		}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_audit_outbox_published_total",
			Help: "Total number of audit outbox entries published to Kafka",
		}),
		OutboxPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "placeclaim_audit_outbox_publish_failures_total",
			Help: "Total number of audit outbox publish failures",
		}),
		OutboxPublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placeclaim_audit_outbox_publish_duration_seconds",
			Help:    "Time taken to publish an audit outbox entry to Kafka",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		OutboxBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placeclaim_audit_outbox_batch_size",
			Help:    "Number of outbox entries processed per poll",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

func (m *Metrics) IncRecorded(action, actorType string) {
	m.EntriesRecorded.WithLabelValues(action, actorType).Inc()
}

func (m *Metrics) IncAppendFailures() {
	m.AppendFailures.Inc()
}

func (m *Metrics) SetOutboxPending(count int64) {
	m.OutboxPending.Set(float64(count))
}

func (m *Metrics) IncPublished() {
	m.OutboxPublished.Inc()
}

func (m *Metrics) IncPublishFailures() {
	m.OutboxPublishFailures.Inc()
}

func (m *Metrics) ObservePublishDuration(seconds float64) {
	m.OutboxPublishDuration.Observe(seconds)
}

func (m *Metrics) ObserveBatchSize(size int) {
	m.OutboxBatchSize.Observe(float64(size))
}
