package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"reclaim/internal/item"
	"reclaim/internal/match"
	"reclaim/internal/notification"
	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// afterCommit runs the matching, subscription, and notification side effects
// of a committed write. Each branch gets bounded retries; if any branch still
// fails the item is flagged match-pending and the sweeper picks it up later.
// The committed write itself is never rolled back.
func (e *Engine) afterCommit(ctx context.Context, it *item.Item, runMatch bool, statusEvent *notification.Event) {
	if err := e.runSideEffects(ctx, it, runMatch, statusEvent); err != nil {
		e.logger.ErrorContext(ctx, "side effects failed, flagging for reconciliation",
			"item_id", it.ID.String(), "error", err)
		e.metrics.IncrementFlagged()
		if flagErr := e.items.SetMatchPending(ctx, it.ID, true); flagErr != nil {
			e.logger.ErrorContext(ctx, "failed to flag item match-pending",
				"item_id", it.ID.String(), "error", flagErr)
		}
	}
}

// runSideEffects fans out matching and subscription evaluation concurrently.
// A plain errgroup, not WithContext: one branch failing must not cancel the
// retries of its sibling.
func (e *Engine) runSideEffects(ctx context.Context, it *item.Item, runMatch bool, statusEvent *notification.Event) error {
	var g errgroup.Group

	if runMatch {
		g.Go(func() error {
			return e.withRetry(ctx, func(ctx context.Context) error {
				return e.runMatching(ctx, it)
			})
		})
	}
	g.Go(func() error {
		return e.withRetry(ctx, func(ctx context.Context) error {
			return e.evaluateSubscriptions(ctx, it)
		})
	})
	if statusEvent != nil {
		g.Go(func() error {
			return e.withRetry(ctx, func(ctx context.Context) error {
				_, err := e.dispatcher.Publish(ctx, *statusEvent)
				return err
			})
		})
	}

	return g.Wait()
}

// withRetry runs op with bounded retries and doubling backoff. Context
// cancellation stops the loop immediately.
func (e *Engine) withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := sideEffectBackoff
	var err error
	for attempt := 0; attempt < sideEffectAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return err
		}
		backoff *= 2
	}
	return err
}

// runMatching checks it against the registry and publishes a match
// notification to both owners of every detected pair. The pair is confirmed
// into history only after both publishes succeed: an unconfirmed pair is
// re-emitted by the next detection run, so a failed publish is retried
// instead of lost. If the confirm itself fails the retry republishes and the
// dispatcher's dedup key collapses the duplicate.
func (e *Engine) runMatching(ctx context.Context, it *item.Item) error {
	events, err := e.matcher.CheckForMatches(ctx, it)
	if err != nil {
		return fmt.Errorf("check for matches: %w", err)
	}
	for _, ev := range events {
		if err := e.publishMatch(ctx, ev); err != nil {
			return err
		}
		if err := e.matcher.Confirm(ctx, ev); err != nil {
			return fmt.Errorf("confirm match pair: %w", err)
		}
	}
	if err := e.items.SetLastMatchedAt(ctx, it.ID, e.now()); err != nil {
		return fmt.Errorf("record match run: %w", err)
	}
	return nil
}

// publishMatch notifies each owner about their side of the pair. The payload
// describes the recipient's own item; the counterpart is referenced by id
// only.
func (e *Engine) publishMatch(ctx context.Context, ev match.Event) error {
	sides := []struct {
		recipient   domain.UserID
		ownItem     domain.ItemID
		counterpart domain.ItemID
	}{
		{ev.OwnerA, ev.ItemA, ev.ItemB},
		{ev.OwnerB, ev.ItemB, ev.ItemA},
	}

	for _, side := range sides {
		own, err := e.items.Get(ctx, side.ownItem)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Deleted between detection and publish; nothing to show.
				continue
			}
			return fmt.Errorf("get matched item: %w", err)
		}
		event := notification.Event{
			Kind:      notification.KindMatch,
			Recipient: side.recipient,
			EntityRef: ev.PairKey(),
			Payload: notification.Payload{
				Kind:              notification.KindMatch,
				ItemID:            own.ID.String(),
				ItemTitle:         own.Title,
				ItemCategory:      own.Category,
				ItemStatus:        own.Status.String(),
				Lat:               own.Point.Lat,
				Lng:               own.Point.Lng,
				CounterpartItemID: side.counterpart.String(),
				Fingerprint:       ev.Fingerprint,
				Confidence:        string(ev.Confidence),
				OccurredAt:        ev.DetectedAt,
			},
		}
		if _, err := e.dispatcher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish match notification: %w", err)
		}
	}
	return nil
}

// evaluateSubscriptions runs the item against every saved search and notifies
// the owners of the subscriptions it satisfies. Each hit is credited only
// after its notification is published, mirroring runMatching: an uncredited
// hit is offered again on the next evaluation.
func (e *Engine) evaluateSubscriptions(ctx context.Context, it *item.Item) error {
	hits, err := e.evaluator.Evaluate(ctx, it)
	if err != nil {
		return fmt.Errorf("evaluate subscriptions: %w", err)
	}
	for _, hit := range hits {
		event := notification.Event{
			Kind:      notification.KindSubscriptionHit,
			Recipient: hit.Subscription.OwnerID,
			EntityRef: hit.Subscription.ID.String() + "|" + hit.Item.ID.String(),
			Payload: notification.Payload{
				Kind:              notification.KindSubscriptionHit,
				ItemID:            hit.Item.ID.String(),
				ItemTitle:         hit.Item.Title,
				ItemCategory:      hit.Item.Category,
				ItemStatus:        hit.Item.Status.String(),
				Lat:               hit.Item.Point.Lat,
				Lng:               hit.Item.Point.Lng,
				SubscriptionID:    hit.Subscription.ID.String(),
				SubscriptionQuery: hit.Subscription.Query,
				OccurredAt:        e.now(),
			},
		}
		if _, err := e.dispatcher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish subscription notification: %w", err)
		}
		if err := e.evaluator.Credit(ctx, hit); err != nil {
			return fmt.Errorf("credit subscription hit: %w", err)
		}
	}
	return nil
}

// statusChangeEvent builds the owner-facing notification for an accepted
// transition. The item id plus new status identifies the condition, so
// repeating the same transition lands on the same dedup key.
func statusChangeEvent(it *item.Item, at time.Time) *notification.Event {
	return &notification.Event{
		Kind:      notification.KindStatusChange,
		Recipient: it.OwnerID,
		EntityRef: it.ID.String() + "|" + it.Status.String(),
		Payload: notification.Payload{
			Kind:         notification.KindStatusChange,
			ItemID:       it.ID.String(),
			ItemTitle:    it.Title,
			ItemCategory: it.Category,
			ItemStatus:   it.Status.String(),
			Lat:          it.Point.Lat,
			Lng:          it.Point.Lng,
			OccurredAt:   at,
		},
	}
}
