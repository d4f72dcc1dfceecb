package subscription

import (
	"context"
	"strings"

	"reclaim/internal/item"
)

// Evaluator matches items against every stored subscription. Called on item
// creation and on every status transition.
type Evaluator struct {
	subs    Store
	tracker Tracker
}

func NewEvaluator(subs Store, tracker Tracker) *Evaluator {
	return &Evaluator{subs: subs, tracker: tracker}
}

// Evaluate returns the subscriptions the item now satisfies. A pair already
// credited for this item version is not returned again; crediting happens
// separately via Credit, so a hit whose notification was never published is
// offered again on the next evaluation. A user's subscriptions never hit
// their own items.
func (e *Evaluator) Evaluate(ctx context.Context, it *item.Item) ([]Hit, error) {
	subs, err := e.subs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sub.OwnerID == it.OwnerID {
			continue
		}
		if !satisfies(sub, it) {
			continue
		}
		lastVersion, seen, err := e.tracker.LastHitVersion(ctx, sub.ID, it.ID)
		if err != nil {
			return nil, err
		}
		if seen && lastVersion >= it.Version {
			continue
		}
		hits = append(hits, Hit{Subscription: sub, Item: it})
	}
	return hits, nil
}

// Credit marks the (subscription, item, item-version) as handled so later
// evaluations skip it. Call only after the hit's notification is with the
// dispatcher; crediting earlier turns a failed publish into a permanently
// lost alert.
func (e *Evaluator) Credit(ctx context.Context, hit Hit) error {
	return e.tracker.RecordHit(ctx, hit.Subscription.ID, hit.Item.ID, hit.Item.Version)
}

// satisfies applies the subscription's criteria: geographic containment AND
// every structured filter AND free-text membership.
func satisfies(sub *Subscription, it *item.Item) bool {
	if sub.RadiusMeters > 0 && sub.Center.DistanceMeters(it.Point) > sub.RadiusMeters {
		return false
	}
	if sub.Category != "" && sub.Category != it.Category {
		return false
	}
	if !sub.CreatedFrom.IsZero() && it.CreatedAt.Before(sub.CreatedFrom) {
		return false
	}
	if !sub.CreatedTo.IsZero() && it.CreatedAt.After(sub.CreatedTo) {
		return false
	}
	if sub.Query != "" && !containsAllTerms(sub.Query, it) {
		return false
	}
	return true
}

// containsAllTerms checks simple token membership over the item's searchable
// fields. Membership only; no ranking.
func containsAllTerms(query string, it *item.Item) bool {
	haystack := strings.ToLower(it.Title + " " + it.Description + " " + it.Category)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
