package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration orchestrator.
type Metrics struct {
	// Assignments created by outcome
	Assignments *prometheus.CounterVec

	// Products submitted to the registry per batch outcome
	Submissions *prometheus.CounterVec

	// Reconciliation transitions by result
	Reconciliations *prometheus.CounterVec

	// Invocations still awaiting results
	PendingInvocations prometheus.Gauge
}

// New creates a Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		Assignments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gtind_registration_assignments_total",
			Help: "Total assignment attempts by outcome",
		}, []string{"outcome"}), // outcome: "assigned", "external", "rejected"

		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gtind_registration_submissions_total",
			Help: "Products handled during batch submission by outcome",
		}, []string{"outcome"}), // outcome: "submitted", "validation_rejected", "skipped_external"

		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gtind_registration_reconciliations_total",
			Help: "Assignment transitions applied during reconciliation by result",
		}, []string{"result"}), // result: "registered", "error", "unmatched"

		PendingInvocations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gtind_registration_pending_invocations",
			Help: "Distinct invocation handles awaiting reconciliation",
		}),
	}
}

// IncrementAssignment records an assignment attempt.
func (m *Metrics) IncrementAssignment(outcome string) {
	if m != nil {
		m.Assignments.WithLabelValues(outcome).Inc()
	}
}

// IncrementSubmission records how a product fared during batch submission.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncrementReconciliation records one reconciliation transition.
func (m *Metrics) IncrementReconciliation(result string) {
	if m != nil {
		m.Reconciliations.WithLabelValues(result).Inc()
	}
}

// SetPendingInvocations records the outstanding invocation count.
func (m *Metrics) SetPendingInvocations(n float64) {
	if m != nil {
		m.PendingInvocations.Set(n)
	}
}
