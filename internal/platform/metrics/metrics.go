package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TokensIssued              prometheus.Counter
	TokensRevoked             prometheus.Counter
	TokenValidations          *prometheus.CounterVec
	AuditWriteFailures        prometheus.Counter
	DeletionRequestsEnqueued  prometheus.Counter
	DeletionRequestsProcessed prometheus.Counter
	DeletionBatchDuration     prometheus.Histogram
}

// New creates the metrics and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_tokens_issued_total",
			Help: "Total number of tokens issued",
		}),
		TokensRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_tokens_revoked_total",
			Help: "Total number of revocation markers written",
		}),
		TokenValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_token_validations_total",
			Help: "Token validations by outcome",
		}, []string{"outcome"}),
		AuditWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_write_failures_total",
			Help: "Audit log appends that failed (global or per-user)",
		}),
		DeletionRequestsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_deletion_requests_enqueued_total",
			Help: "Account deletion requests appended to the queue",
		}),
		DeletionRequestsProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_deletion_requests_processed_total",
			Help: "Account deletion requests processed (includes re-processing)",
		}),
		DeletionBatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_deletion_batch_duration_seconds",
			Help:    "Wall time of one deletion queue batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	m.TokensRevoked.Inc()
}

// ObserveValidation counts a validation under outcome ("valid" or a failure reason).
func (m *Metrics) ObserveValidation(outcome string) {
	m.TokenValidations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementAuditWriteFailures() {
	m.AuditWriteFailures.Inc()
}

func (m *Metrics) IncrementDeletionEnqueued() {
	m.DeletionRequestsEnqueued.Inc()
}

func (m *Metrics) AddDeletionProcessed(n int) {
	m.DeletionRequestsProcessed.Add(float64(n))
}

func (m *Metrics) ObserveDeletionBatch(seconds float64) {
	m.DeletionBatchDuration.Observe(seconds)
}
