package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	// New notification records by kind
	Published *prometheus.CounterVec

	// Publishes collapsed onto an existing unread record
	Deduplicated *prometheus.CounterVec

	// Delivery sink outcomes
	Deliveries *prometheus.CounterVec
}

// New creates a new Metrics instance with all notification module metrics registered.
func New() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_notifications_published_total",
			Help: "Total new notification records by kind",
		}, []string{"kind"}),

		Deduplicated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_notifications_deduplicated_total",
			Help: "Total publishes collapsed onto an existing unread record",
		}, []string{"kind"}),

		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_notification_deliveries_total",
			Help: "Total delivery sink attempts by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementPublished records a newly created notification.
func (m *Metrics) IncrementPublished(kind string) {
	if m != nil {
		m.Published.WithLabelValues(kind).Inc()
	}
}

// IncrementDeduplicated records a publish that bumped an existing record.
func (m *Metrics) IncrementDeduplicated(kind string) {
	if m != nil {
		m.Deduplicated.WithLabelValues(kind).Inc()
	}
}

// IncrementDelivery records a delivery attempt outcome ("ok" or "error").
func (m *Metrics) IncrementDelivery(outcome string) {
	if m != nil {
		m.Deliveries.WithLabelValues(outcome).Inc()
	}
}
