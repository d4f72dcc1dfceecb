package notification

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"reclaim/pkg/domain"
)

// Kind classifies what triggered a notification. Dedup keys incorporate the
// kind, so the same underlying item can carry one unread alert per kind.
type Kind string

const (
	KindMatch           Kind = "match"
	KindStatusChange    Kind = "status_change"
	KindSubscriptionHit Kind = "subscription_hit"
)

// Payload is the flat, denormalized snapshot delivered with a notification.
// It must stay renderable without further lookups, even after the referenced
// item is deleted.
type Payload struct {
	Kind         Kind    `json:"kind"`
	ItemID       string  `json:"item_id"`
	ItemTitle    string  `json:"item_title"`
	ItemCategory string  `json:"item_category"`
	ItemStatus   string  `json:"item_status"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`

	// Match notifications only.
	CounterpartItemID string `json:"counterpart_item_id,omitempty"`
	Fingerprint       string `json:"fingerprint,omitempty"`
	Confidence        string `json:"confidence,omitempty"`

	// Subscription hits only.
	SubscriptionID    string `json:"subscription_id,omitempty"`
	SubscriptionQuery string `json:"subscription_query,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Event is one publishable trigger: a detected match, a status transition,
// or a subscription hit, already routed to a single recipient.
//
// EntityRef is the kind-specific identity of the underlying condition: the
// pair key for matches, item id plus status for transitions, subscription id
// plus item id for hits. Re-triggering the same condition therefore lands on
// the same dedup key.
type Event struct {
	Kind      Kind
	Recipient domain.UserID
	EntityRef string
	Payload   Payload
}

// DedupKey returns the deterministic key collapsing logically-equivalent
// triggers: a hash of kind, recipient, and entity reference.
func (e Event) DedupKey() string {
	h := sha256.Sum256([]byte(string(e.Kind) + "|" + e.Recipient.String() + "|" + e.EntityRef))
	return hex.EncodeToString(h[:])
}

// Notification is a persisted alert for one recipient.
// Invariant: at most one unread notification per (recipient, dedup key);
// re-triggering bumps UpdatedAt and payload instead of duplicating.
type Notification struct {
	ID        domain.NotificationID
	Recipient domain.UserID
	Kind      Kind
	Payload   Payload
	DedupKey  string
	Read      bool

	// Delivered records that the external delivery sink accepted this
	// notification id. The sweeper re-offers undelivered notifications
	// within the confirmation window.
	Delivered bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
