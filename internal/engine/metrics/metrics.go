package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the engine module.
type Metrics struct {
	// Accepted status transitions by target status
	Transitions *prometheus.CounterVec

	// Rejected status changes by error code
	TransitionsRejected *prometheus.CounterVec

	// Items flagged match-pending after side effects failed
	MatchPendingFlagged prometheus.Counter

	// Items cleared by the reconciliation sweep
	MatchPendingReconciled prometheus.Counter
}

// New creates a new Metrics instance with all engine module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_engine_transitions_total",
			Help: "Total accepted status transitions by target status",
		}, []string{"status"}),

		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_engine_transitions_rejected_total",
			Help: "Total rejected status changes by error code",
		}, []string{"code"}),

		MatchPendingFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_engine_match_pending_flagged_total",
			Help: "Total items flagged match-pending after side effect failure",
		}),

		MatchPendingReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_engine_match_pending_reconciled_total",
			Help: "Total match-pending items cleared by the reconciliation sweep",
		}),
	}
}

// IncrementTransition records an accepted transition into status.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// IncrementRejected records a rejected status change.
func (m *Metrics) IncrementRejected(code string) {
	if m != nil {
		m.TransitionsRejected.WithLabelValues(code).Inc()
	}
}

// IncrementFlagged records an item flagged for reconciliation.
func (m *Metrics) IncrementFlagged() {
	if m != nil {
		m.MatchPendingFlagged.Inc()
	}
}

// IncrementReconciled records an item cleared by the sweep.
func (m *Metrics) IncrementReconciled() {
	if m != nil {
		m.MatchPendingReconciled.Inc()
	}
}
