package match

import (
	"time"

	"reclaim/pkg/domain"
)

// Confidence grades how a pair was matched.
type Confidence string

const (
	ConfidenceExact Confidence = "exact"
	ConfidenceFuzzy Confidence = "fuzzy"
)

// Event records one detected candidate pair. Events are produced here and
// persisted by the caller; once consumed by the notification dispatcher they
// are immutable history.
//
// ItemA and ItemB are stored in ascending id order so an unordered pair has
// exactly one representation.
type Event struct {
	ItemA       domain.ItemID
	OwnerA      domain.UserID
	ItemB       domain.ItemID
	OwnerB      domain.UserID
	Fingerprint string
	Confidence  Confidence
	DetectedAt  time.Time
}

// PairKey is the canonical identity of the unordered pair.
func (e Event) PairKey() string {
	return pairKey(e.ItemA, e.ItemB)
}

// orderPair returns the two ids in ascending order.
func orderPair(a, b domain.ItemID) (domain.ItemID, domain.ItemID) {
	if a.String() <= b.String() {
		return a, b
	}
	return b, a
}

func pairKey(a, b domain.ItemID) string {
	lo, hi := orderPair(a, b)
	return lo.String() + "|" + hi.String()
}
