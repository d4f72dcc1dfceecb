package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching module.
type Metrics struct {
	// Matches emitted by confidence tier
	MatchesEmitted *prometheus.CounterVec

	// Pairs suppressed by history (already reported, counterpart unchanged)
	MatchesSuppressed prometheus.Counter

	// Full detection run latency
	CheckLatency prometheus.Histogram
}

// New creates a new Metrics instance with all matching module metrics registered.
func New() *Metrics {
	return &Metrics{
		MatchesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_match_events_total",
			Help: "Total match events emitted by confidence tier",
		}, []string{"confidence"}),

		MatchesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_match_suppressed_total",
			Help: "Total candidate pairs suppressed by pair history",
		}),

		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reclaim_match_check_duration_seconds",
			Help:    "Duration of full detection runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementEmitted records an emitted match event.
func (m *Metrics) IncrementEmitted(confidence string) {
	if m != nil {
		m.MatchesEmitted.WithLabelValues(confidence).Inc()
	}
}

// IncrementSuppressed records a pair suppressed by history.
func (m *Metrics) IncrementSuppressed() {
	if m != nil {
		m.MatchesSuppressed.Inc()
	}
}

// ObserveCheck records the duration of a detection run.
func (m *Metrics) ObserveCheck(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}
