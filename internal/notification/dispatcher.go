package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reclaim/internal/notification/metrics"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

// Dispatcher turns trigger events into durable notifications and offers them
// to the delivery sink. The record is persisted before delivery is attempted;
// a sink failure leaves the notification undelivered for RedeliverPending.
type Dispatcher struct {
	store   Store
	sink    DeliverySink
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store Store, sink DeliverySink, m *metrics.Metrics, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		sink:    sink,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish records the event. Publishing the same logical condition while an
// unread notification for it exists bumps that record instead of creating a
// second one. The returned notification is the stored state either way.
func (d *Dispatcher) Publish(ctx context.Context, event Event) (*Notification, error) {
	now := d.now()
	candidate := &Notification{
		ID:        domain.NewNotificationID(),
		Recipient: event.Recipient,
		Kind:      event.Kind,
		Payload:   event.Payload,
		DedupKey:  event.DedupKey(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, created, err := d.store.UpsertByDedupKey(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	if created {
		d.metrics.IncrementPublished(string(event.Kind))
	} else {
		d.metrics.IncrementDeduplicated(string(event.Kind))
	}

	if !stored.Delivered {
		d.deliver(ctx, stored)
	}
	return stored, nil
}

// deliver offers one notification to the sink and records acceptance. Sink
// failures are logged and counted but never surfaced to the publisher.
func (d *Dispatcher) deliver(ctx context.Context, n *Notification) {
	if err := d.sink.Deliver(ctx, n); err != nil {
		d.metrics.IncrementDelivery("error")
		d.logger.WarnContext(ctx, "notification delivery failed",
			"notification_id", n.ID.String(),
			"kind", string(n.Kind),
			"error", err)
		return
	}
	if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
		d.logger.WarnContext(ctx, "failed to record delivery",
			"notification_id", n.ID.String(),
			"error", err)
		return
	}
	n.Delivered = true
	d.metrics.IncrementDelivery("ok")
}

// MarkRead marks the notification read on behalf of userID. Only the
// recipient may read a notification.
func (d *Dispatcher) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return fmt.Errorf("get notification: %w", err)
	}
	if n.Recipient != userID {
		return dErrors.New(dErrors.CodeForbidden, "notification belongs to another user")
	}
	if n.Read {
		return nil
	}
	if err := d.store.MarkRead(ctx, id, d.now()); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (d *Dispatcher) ListUnread(ctx context.Context, userID domain.UserID) ([]*Notification, error) {
	return d.store.ListUnread(ctx, userID)
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID domain.UserID) (int, error) {
	return d.store.UnreadCount(ctx, userID)
}

// RedeliverPending re-offers unread notifications whose delivery was never
// confirmed and that are younger than the confirmation window. Called by the
// background sweeper.
func (d *Dispatcher) RedeliverPending(ctx context.Context, window time.Duration) (int, error) {
	cutoff := d.now().Add(-window)
	pending, err := d.store.ListUndelivered(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list undelivered: %w", err)
	}

	redelivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return redelivered, ctx.Err()
		}
		d.deliver(ctx, n)
		if n.Delivered {
			redelivered++
		}
	}
	return redelivered, nil
}
