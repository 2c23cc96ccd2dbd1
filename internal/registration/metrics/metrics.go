package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration ledger.
type Metrics struct {
	Issued         prometheus.Counter
	IssueConflicts prometheus.Counter
	Voided         *prometheus.CounterVec
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_registrations_issued_total",
			Help: "Total registrations issued",
		}),
		IssueConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_registration_issue_conflicts_total",
			Help: "Issuance attempts rejected because the pair was already registered",
		}),
		Voided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_registrations_voided_total",
			Help: "Total registrations voided by path",
		}, []string{"path"}), // path: "void", "override"
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

// IncrementIssueConflict records a duplicate-pair rejection.
func (m *Metrics) IncrementIssueConflict() {
	if m != nil {
		m.IssueConflicts.Inc()
	}
}

// IncrementVoided records a void by path.
func (m *Metrics) IncrementVoided(path string) {
	if m != nil {
		m.Voided.WithLabelValues(path).Inc()
	}
}
