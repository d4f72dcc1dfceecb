package httptransport

import (
	"time"

	"reclaim/internal/item"
	"reclaim/internal/notification"
	"reclaim/internal/subscription"
)

type itemResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Status       string    `json:"status"`
	MatchPending bool      `json:"match_pending,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func fromItem(it *item.Item) itemResponse {
	return itemResponse{
		ID:           it.ID.String(),
		OwnerID:      it.OwnerID.String(),
		Category:     it.Category,
		Title:        it.Title,
		Description:  it.Description,
		Fingerprint:  it.Fingerprint,
		Lat:          it.Point.Lat,
		Lng:          it.Point.Lng,
		Status:       it.Status.String(),
		MatchPending: it.MatchPending,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

type nearbyResponse struct {
	Items []item.Summary `json:"items"`
}

type subscriptionResponse struct {
	ID           string    `json:"id"`
	Query        string    `json:"query,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedFrom  string    `json:"created_from,omitempty"`
	CreatedTo    string    `json:"created_to,omitempty"`
	Lat          float64   `json:"lat,omitempty"`
	Lng          float64   `json:"lng,omitempty"`
	RadiusMeters float64   `json:"radius_meters,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func fromSubscription(sub *subscription.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:           sub.ID.String(),
		Query:        sub.Query,
		Category:     sub.Category,
		RadiusMeters: sub.RadiusMeters,
		CreatedAt:    sub.CreatedAt,
	}
	if sub.RadiusMeters > 0 {
		resp.Lat = sub.Center.Lat
		resp.Lng = sub.Center.Lng
	}
	if !sub.CreatedFrom.IsZero() {
		resp.CreatedFrom = sub.CreatedFrom.Format(time.RFC3339)
	}
	if !sub.CreatedTo.IsZero() {
		resp.CreatedTo = sub.CreatedTo.Format(time.RFC3339)
	}
	return resp
}

type subscriptionsResponse struct {
	Subscriptions []subscriptionResponse `json:"subscriptions"`
}

type notificationResponse struct {
	ID        string               `json:"id"`
	Kind      string               `json:"kind"`
	Payload   notification.Payload `json:"payload"`
	Read      bool                 `json:"read"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func fromNotification(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID.String(),
		Kind:      string(n.Kind),
		Payload:   n.Payload,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type notificationsResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

type unreadCountResponse struct {
	Unread int `json:"unread"`
}
