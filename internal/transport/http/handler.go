// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the engine, and encode; business rules never live here.
package httptransport

import (
	"context"
	"log/slog"

	"reclaim/internal/engine"
	"reclaim/internal/item"
	"reclaim/internal/notification"
	"reclaim/internal/spatial"
	"reclaim/internal/subscription"
	"reclaim/pkg/domain"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks

// Service is the engine surface the HTTP layer depends on.
type Service interface {
	CreateItem(ctx context.Context, ownerID domain.UserID, params engine.CreateItemParams) (*item.Item, error)
	UpdateItemStatus(ctx context.Context, itemID domain.ItemID, requested domain.Status, actingUserID domain.UserID, moderator bool) (*item.Item, error)
	DeleteItem(ctx context.Context, itemID domain.ItemID, actingUserID domain.UserID, moderator bool) error
	QueryNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, filters spatial.Filters, page engine.Page) ([]item.Summary, error)

	CreateSubscription(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error)
	DeleteSubscription(ctx context.Context, id domain.SubscriptionID, actingUserID domain.UserID) error
	ListSubscriptions(ctx context.Context, ownerID domain.UserID) ([]*subscription.Subscription, error)

	ListNotifications(ctx context.Context, userID domain.UserID) ([]*notification.Notification, error)
	CountNotifications(ctx context.Context, userID domain.UserID) (int, error)
	MarkNotificationRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error
}

// Handler handles all registry endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}
