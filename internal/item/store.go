package item

import (
	"context"
	"time"

	"reclaim/pkg/domain"
)

// Store persists items. Implementations must be safe for concurrent use.
//
// UpdateStatus is an optimistic compare-and-swap: it succeeds only when the
// stored version equals expectedVersion, returning sentinel.ErrConflict
// otherwise. That is the primitive the engine's per-item serialization and
// conflict retry are built on.
type Store interface {
	Create(ctx context.Context, it *Item) error
	Get(ctx context.Context, id domain.ItemID) (*Item, error)
	Delete(ctx context.Context, id domain.ItemID) error

	UpdateStatus(ctx context.Context, id domain.ItemID, status domain.Status, updatedAt time.Time, expectedVersion int64) (*Item, error)
	SetMatchPending(ctx context.Context, id domain.ItemID, pending bool) error
	SetLastMatchedAt(ctx context.Context, id domain.ItemID, at time.Time) error

	// FindByFingerprint returns items whose stored (normalized) fingerprint
	// equals fp. Used by the exact matching tier.
	FindByFingerprint(ctx context.Context, fp string) ([]*Item, error)

	// ListFingerprinted returns every item with a non-empty fingerprint.
	// Used by the fuzzy matching tier; bounded by registry size.
	ListFingerprinted(ctx context.Context) ([]*Item, error)

	// ListMatchPending returns items awaiting a reconciliation sweep.
	ListMatchPending(ctx context.Context) ([]*Item, error)
}
