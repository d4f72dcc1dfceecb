// Package engine orchestrates the registry: it owns item writes and fans out
// the matching, subscription, and notification side effects those writes
// trigger. All invariants that span modules are enforced here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reclaim/internal/engine/metrics"
	"reclaim/internal/item"
	"reclaim/internal/lifecycle"
	"reclaim/internal/match"
	"reclaim/internal/notification"
	"reclaim/internal/spatial"
	"reclaim/internal/subscription"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500

	sideEffectAttempts = 3
	sideEffectBackoff  = 100 * time.Millisecond
)

// Engine composes the item store, spatial index, matcher, subscription
// evaluator, and notification dispatcher behind the operations the HTTP
// boundary exposes.
type Engine struct {
	items      item.Store
	index      spatial.Index
	querier    *spatial.Querier
	matcher    *match.Matcher
	subs       subscription.Store
	evaluator  *subscription.Evaluator
	dispatcher *notification.Dispatcher

	locks   *keyedMutex
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs the engine. Metrics may be nil.
func New(
	items item.Store,
	index spatial.Index,
	querier *spatial.Querier,
	matcher *match.Matcher,
	subs subscription.Store,
	evaluator *subscription.Evaluator,
	dispatcher *notification.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		items:      items,
		index:      index,
		querier:    querier,
		matcher:    matcher,
		subs:       subs,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		locks:      newKeyedMutex(),
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// CreateItemParams are the caller-supplied attributes of a new item.
type CreateItemParams struct {
	Category    string
	Title       string
	Description string
	Fingerprint string
	Lat         float64
	Lng         float64
}

// CreateItem registers a new item for ownerID. The item starts in the initial
// lifecycle state, is indexed spatially, and is checked for identity matches
// and subscription hits before the call returns.
func (e *Engine) CreateItem(ctx context.Context, ownerID domain.UserID, params CreateItemParams) (*item.Item, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	if params.Title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	point, err := domain.ParseGeoPoint(params.Lat, params.Lng)
	if err != nil {
		return nil, err
	}

	now := e.now()
	it := &item.Item{
		ID:          domain.NewItemID(),
		OwnerID:     ownerID,
		Category:    params.Category,
		Title:       params.Title,
		Description: params.Description,
		Fingerprint: match.Normalize(params.Fingerprint),
		Point:       point,
		Status:      lifecycle.Initial,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.items.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	if err := e.index.Upsert(ctx, it.ID, it.Point); err != nil {
		// No partial writes: an unindexable item must not exist.
		if delErr := e.items.Delete(ctx, it.ID); delErr != nil {
			e.logger.ErrorContext(ctx, "failed to roll back unindexed item",
				"item_id", it.ID.String(), "error", delErr)
		}
		return nil, fmt.Errorf("index item: %w", err)
	}

	e.afterCommit(ctx, it, true, nil)
	return e.currentState(ctx, it)
}

// UpdateItemStatus applies a lifecycle transition on behalf of actingUserID.
// Only the owner or a moderator may change status. The transition commits
// atomically under an optimistic version check, retried once before
// surfacing Conflict.
func (e *Engine) UpdateItemStatus(ctx context.Context, itemID domain.ItemID, requested domain.Status, actingUserID domain.UserID, moderator bool) (*item.Item, error) {
	unlock := e.locks.Lock(itemID)
	defer unlock()

	updated, err := e.transition(ctx, itemID, requested, actingUserID, moderator)
	if err != nil {
		e.metrics.IncrementRejected(string(dErrors.CodeOf(err)))
		return nil, err
	}
	e.metrics.IncrementTransition(string(requested))

	e.afterCommit(ctx, updated, lifecycle.TriggersMatching(requested), statusChangeEvent(updated, e.now()))
	return e.currentState(ctx, updated)
}

// transition performs the permission check, table validation, and CAS write.
// Callers hold the per-item lock.
func (e *Engine) transition(ctx context.Context, itemID domain.ItemID, requested domain.Status, actingUserID domain.UserID, moderator bool) (*item.Item, error) {
	for attempt := 0; ; attempt++ {
		cur, err := e.items.Get(ctx, itemID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
			}
			return nil, fmt.Errorf("get item: %w", err)
		}
		if cur.OwnerID != actingUserID && !moderator {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the owner or a moderator may change item status")
		}
		if err := lifecycle.Validate(cur.Status, requested); err != nil {
			return nil, err
		}

		updated, err := e.items.UpdateStatus(ctx, itemID, requested, e.now(), cur.Version)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, fmt.Errorf("update status: %w", err)
		}
		// Someone mutated the item outside this process. One re-read and
		// re-validate; a second collision is the caller's problem.
		if attempt >= 1 {
			return nil, dErrors.New(dErrors.CodeConflict, "concurrent status change, retry")
		}
	}
}

// Page bounds a query result window.
type Page struct {
	Limit  int
	Offset int
}

// QueryNearby returns items within radiusMeters of center matching the
// filters, ordered by ascending distance, windowed by page.
func (e *Engine) QueryNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, filters spatial.Filters, page Page) ([]item.Summary, error) {
	if radiusMeters <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "radius must be positive")
	}

	summaries, err := e.querier.QueryRadius(ctx, center, radiusMeters, filters)
	if err != nil {
		return nil, err
	}

	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page.Offset >= len(summaries) {
		return []item.Summary{}, nil
	}
	end := page.Offset + limit
	if end > len(summaries) {
		end = len(summaries)
	}
	return summaries[page.Offset:end], nil
}

// DeleteItem removes an item from the registry and the spatial index. Only
// the owner or a moderator may delete. Already-published notifications about
// the item survive; their payloads are self-contained.
func (e *Engine) DeleteItem(ctx context.Context, itemID domain.ItemID, actingUserID domain.UserID, moderator bool) error {
	unlock := e.locks.Lock(itemID)
	defer unlock()

	cur, err := e.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return fmt.Errorf("get item: %w", err)
	}
	if cur.OwnerID != actingUserID && !moderator {
		return dErrors.New(dErrors.CodeForbidden, "only the owner or a moderator may delete an item")
	}

	if err := e.items.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := e.index.Remove(ctx, itemID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		// Stale index entries are skipped at query time.
		e.logger.WarnContext(ctx, "failed to remove item from spatial index",
			"item_id", itemID.String(), "error", err)
	}
	return nil
}

// currentState re-reads the item so the caller sees flags set by the side
// effect pass. Falls back to the in-hand copy if the read fails.
func (e *Engine) currentState(ctx context.Context, it *item.Item) (*item.Item, error) {
	fresh, err := e.items.Get(ctx, it.ID)
	if err != nil {
		return it, nil
	}
	return fresh, nil
}
