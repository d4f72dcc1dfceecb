package spatial

import (
	"context"
	"errors"
	"time"

	"reclaim/internal/item"
	"reclaim/internal/spatial/metrics"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

// Filters narrow a radius query by item attributes. Zero values mean "any".
// They are applied strictly after spatial narrowing so the index itself stays
// single-purpose.
type Filters struct {
	Category    string
	Status      domain.Status
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// ItemSource is the read access the querier needs to post-filter neighbors.
type ItemSource interface {
	Get(ctx context.Context, id domain.ItemID) (*item.Item, error)
}

// Querier composes the spatial index with the item store to answer the
// proximity-search contract: neighbors within the radius, attribute-filtered,
// ordered by ascending distance.
type Querier struct {
	index   Index
	items   ItemSource
	timeout time.Duration
	backend string
	metrics *metrics.Metrics
}

// NewQuerier builds a querier over the given index. The timeout bounds every
// query regardless of the caller's context.
func NewQuerier(index Index, items ItemSource, timeout time.Duration, backend string, m *metrics.Metrics) *Querier {
	return &Querier{index: index, items: items, timeout: timeout, backend: backend, metrics: m}
}

// QueryRadius returns summaries of items within radiusMeters of center that
// satisfy the filters, ordered by ascending distance with item-id tiebreak.
func (q *Querier) QueryRadius(ctx context.Context, center domain.GeoPoint, radiusMeters float64, filters Filters) ([]item.Summary, error) {
	start := time.Now()
	defer func() { q.metrics.ObserveQuery(q.backend, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	neighbors, err := q.index.Nearby(ctx, center, radiusMeters)
	if err != nil {
		return nil, err
	}

	out := make([]item.Summary, 0, len(neighbors))
	for _, n := range neighbors {
		if err := ctx.Err(); err != nil {
			q.metrics.IncrementTimeouts()
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "radius query exceeded deadline")
		}
		it, err := q.items.Get(ctx, n.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Index briefly ahead of the store during removals; skip.
				continue
			}
			return nil, err
		}
		if !matches(it, filters) {
			continue
		}
		s := it.Summarize()
		s.DistanceMeters = n.DistanceMeters
		out = append(out, s)
	}
	return out, nil
}

func matches(it *item.Item, f Filters) bool {
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if !f.CreatedFrom.IsZero() && it.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && it.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}
