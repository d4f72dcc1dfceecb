// Package match detects when independently registered items share an
// identifying fingerprint. It produces events only; persistence and routing
// belong to the caller.
package match

import (
	"context"
	"time"

	"reclaim/internal/item"
	"reclaim/internal/match/metrics"
	dErrors "reclaim/pkg/domain-errors"
)

// fuzzyMinLength is the minimum normalized fingerprint length eligible for
// the edit-distance tier. Short identifiers collide too easily to be signal.
const fuzzyMinLength = 6

// ItemSource is the read access the matcher needs over the registry.
type ItemSource interface {
	FindByFingerprint(ctx context.Context, fp string) ([]*item.Item, error)
	ListFingerprinted(ctx context.Context) ([]*item.Item, error)
}

// Matcher runs detection for a single item against the registry.
type Matcher struct {
	items   ItemSource
	history History
	fuzzy   bool
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithFuzzy enables the edit-distance tier. Off by default; it scans every
// fingerprint in the registry and is the first thing shed under load.
func WithFuzzy(enabled bool) Option {
	return func(m *Matcher) { m.fuzzy = enabled }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// NewMatcher constructs a matcher. Metrics may be nil.
func NewMatcher(items ItemSource, history History, timeout time.Duration, met *metrics.Metrics, opts ...Option) *Matcher {
	m := &Matcher{
		items:   items,
		history: history,
		timeout: timeout,
		metrics: met,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// CheckForMatches returns the match events for it against the current
// registry. Guarantees:
//
//   - items with an empty normalized fingerprint are silently skipped
//   - the item never matches itself or another item of the same owner
//   - each unordered pair is reported at most once per detection run, and
//     not again on later runs once confirmed, unless the counterpart changed
//     since the pair was last confirmed
//
// The scan is bounded by the configured timeout and surfaces Timeout on
// expiry. Detection is read-only: an emitted pair is suppressed on later
// runs only after the caller confirms it via Confirm, so a run whose events
// were never acted on re-emits them.
func (m *Matcher) CheckForMatches(ctx context.Context, it *item.Item) ([]Event, error) {
	start := m.now()
	defer func() { m.metrics.ObserveCheck(time.Since(start)) }()

	fp := Normalize(it.Fingerprint)
	if fp == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	seen := map[string]bool{}
	var events []Event

	exact, err := m.items.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	for _, candidate := range exact {
		ev, emit, err := m.consider(ctx, it, candidate, fp, ConfidenceExact, seen)
		if err != nil {
			return nil, err
		}
		if emit {
			events = append(events, ev)
		}
	}

	if m.fuzzy && len(fp) >= fuzzyMinLength {
		all, err := m.items.ListFingerprinted(ctx)
		if err != nil {
			return nil, err
		}
		for _, candidate := range all {
			if err := ctx.Err(); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "matcher scan exceeded deadline")
			}
			cfp := candidate.Fingerprint
			if len(cfp) < fuzzyMinLength || cfp == fp || !withinDistanceOne(fp, cfp) {
				continue
			}
			ev, emit, err := m.consider(ctx, it, candidate, fp, ConfidenceFuzzy, seen)
			if err != nil {
				return nil, err
			}
			if emit {
				events = append(events, ev)
			}
		}
	}

	return events, nil
}

// consider applies the exclusion and idempotence rules to one candidate.
func (m *Matcher) consider(ctx context.Context, it, candidate *item.Item, fp string, confidence Confidence, seen map[string]bool) (Event, bool, error) {
	if candidate.ID == it.ID || candidate.OwnerID == it.OwnerID {
		return Event{}, false, nil
	}
	key := pairKey(it.ID, candidate.ID)
	if seen[key] {
		return Event{}, false, nil
	}
	seen[key] = true

	recordedAt, recorded, err := m.history.LastRecorded(ctx, key)
	if err != nil {
		return Event{}, false, err
	}
	if recorded && !candidate.UpdatedAt.After(recordedAt) {
		m.metrics.IncrementSuppressed()
		return Event{}, false, nil
	}

	a, b := orderPair(it.ID, candidate.ID)
	ownerA, ownerB := it.OwnerID, candidate.OwnerID
	if a != it.ID {
		ownerA, ownerB = candidate.OwnerID, it.OwnerID
	}
	m.metrics.IncrementEmitted(string(confidence))
	return Event{
		ItemA:       a,
		OwnerA:      ownerA,
		ItemB:       b,
		OwnerB:      ownerB,
		Fingerprint: fp,
		Confidence:  confidence,
		DetectedAt:  m.now(),
	}, true, nil
}

// Confirm records the pair so later detection runs suppress it. Call only
// once the event's notifications are safely with the dispatcher; confirming
// earlier turns a failed publish into a permanently lost alert.
func (m *Matcher) Confirm(ctx context.Context, ev Event) error {
	return m.history.Record(ctx, ev.PairKey(), ev.DetectedAt)
}
