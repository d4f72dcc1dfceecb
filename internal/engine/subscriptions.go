package engine

import (
	"context"
	"errors"
	"fmt"

	"reclaim/internal/notification"
	"reclaim/internal/subscription"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

// CreateSubscription stores a saved search. At least one criterion is
// required; a geographic constraint requires a valid center.
func (e *Engine) CreateSubscription(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	sub.ID = domain.NewSubscriptionID()
	sub.CreatedAt = e.now()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := e.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a saved search. Only its owner may delete it.
func (e *Engine) DeleteSubscription(ctx context.Context, id domain.SubscriptionID, actingUserID domain.UserID) error {
	sub, err := e.subs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subscription not found")
		}
		return fmt.Errorf("get subscription: %w", err)
	}
	if sub.OwnerID != actingUserID {
		return dErrors.New(dErrors.CodeForbidden, "only the owner may delete a subscription")
	}
	if err := e.subs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns the caller's saved searches.
func (e *Engine) ListSubscriptions(ctx context.Context, ownerID domain.UserID) ([]*subscription.Subscription, error) {
	return e.subs.ListByOwner(ctx, ownerID)
}

// ListNotifications returns the caller's unread notifications, most recently
// touched first.
func (e *Engine) ListNotifications(ctx context.Context, userID domain.UserID) ([]*notification.Notification, error) {
	return e.dispatcher.ListUnread(ctx, userID)
}

// CountNotifications returns the caller's unread count.
func (e *Engine) CountNotifications(ctx context.Context, userID domain.UserID) (int, error) {
	return e.dispatcher.UnreadCount(ctx, userID)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (e *Engine) MarkNotificationRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	return e.dispatcher.MarkRead(ctx, userID, id)
}
