package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the spatial module.
type Metrics struct {
	// Radius query latencies by index backend
	QueryLatency *prometheus.HistogramVec

	// Indexed point count
	IndexSize prometheus.Gauge

	// Queries that hit the deadline
	QueryTimeouts prometheus.Counter
}

// New creates a new Metrics instance with all spatial module metrics registered.
func New() *Metrics {
	return &Metrics{
		QueryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reclaim_spatial_query_duration_seconds",
			Help:    "Duration of radius queries by index backend",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend"}),

		IndexSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reclaim_spatial_index_points",
			Help: "Number of points currently held by the spatial index",
		}),

		QueryTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_spatial_query_timeouts_total",
			Help: "Total radius queries aborted by the query deadline",
		}),
	}
}

// ObserveQuery records the duration of a radius query.
func (m *Metrics) ObserveQuery(backend string, d time.Duration) {
	if m != nil {
		m.QueryLatency.WithLabelValues(backend).Observe(d.Seconds())
	}
}

// SetIndexSize records the current point count.
func (m *Metrics) SetIndexSize(n int) {
	if m != nil {
		m.IndexSize.Set(float64(n))
	}
}

// IncrementTimeouts records a query aborted by its deadline.
func (m *Metrics) IncrementTimeouts() {
	if m != nil {
		m.QueryTimeouts.Inc()
	}
}
