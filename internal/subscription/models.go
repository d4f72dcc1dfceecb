package subscription

import (
	"time"

	"reclaim/internal/item"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
)

// Subscription is a saved search. Read-only after creation except for
// deletion; the engine never mutates one.
type Subscription struct {
	ID      domain.SubscriptionID
	OwnerID domain.UserID

	// Query is free text; every whitespace-separated term must appear in the
	// item's searchable fields for the subscription to hit. No ranking.
	Query string

	// Structured filters. Zero values mean "any"; RadiusMeters <= 0 means no
	// geographic constraint.
	Category     string
	CreatedFrom  time.Time
	CreatedTo    time.Time
	Center       domain.GeoPoint
	RadiusMeters float64

	CreatedAt time.Time
}

// Validate checks invariants on creation. A geographic constraint requires a
// valid center.
func (s *Subscription) Validate() error {
	if s.OwnerID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "subscription owner is required")
	}
	if s.RadiusMeters > 0 {
		if _, err := domain.ParseGeoPoint(s.Center.Lat, s.Center.Lng); err != nil {
			return err
		}
	}
	if s.Query == "" && s.Category == "" && s.RadiusMeters <= 0 && s.CreatedFrom.IsZero() && s.CreatedTo.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "subscription must have at least one criterion")
	}
	return nil
}

// Hit pairs a subscription with the item that satisfied it.
type Hit struct {
	Subscription *Subscription
	Item         *item.Item
}
