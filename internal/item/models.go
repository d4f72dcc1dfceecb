package item

import (
	"time"

	"reclaim/pkg/domain"
)

// Item is a registered piece of property. The fingerprint is stored already
// normalized (see internal/match); two items may legitimately share one —
// that collision is the signal the matcher detects, so it is never a storage
// uniqueness constraint.
type Item struct {
	ID          domain.ItemID
	OwnerID     domain.UserID
	Category    string
	Title       string
	Description string
	Fingerprint string
	Point       domain.GeoPoint
	Status      domain.Status

	// Version increments on every accepted mutation. Subscription evaluation
	// and optimistic status updates key off it.
	Version int64

	// MatchPending marks items whose matching side effects failed after the
	// status commit; the reconciliation sweeper retries them.
	MatchPending bool

	// LastMatchedAt is when the matcher last completed a run for this item.
	// Pair history compares counterpart update times against it so re-runs
	// stay silent unless something changed.
	LastMatchedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the flat projection returned by proximity queries and embedded
// into notification payloads. It must stay renderable without further
// lookups.
type Summary struct {
	ID             domain.ItemID   `json:"id"`
	Category       string          `json:"category"`
	Title          string          `json:"title"`
	Status         domain.Status   `json:"status"`
	Point          domain.GeoPoint `json:"point"`
	DistanceMeters float64         `json:"distance_meters,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Summarize builds the denormalized projection of an item.
func (i *Item) Summarize() Summary {
	return Summary{
		ID:        i.ID,
		Category:  i.Category,
		Title:     i.Title,
		Status:    i.Status,
		Point:     i.Point,
		CreatedAt: i.CreatedAt,
	}
}

// Clone returns a deep copy so callers can hold items without aliasing store
// internals.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}
