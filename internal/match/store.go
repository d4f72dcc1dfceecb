package match

import (
	"context"
	"sync"
	"time"
)

// History tracks which pairs have already been reported, and when. The
// matcher consults it so re-running a detection for an unchanged item set
// never re-emits an event.
type History interface {
	// LastRecorded returns when the pair was last reported, with ok=false if
	// it never was.
	LastRecorded(ctx context.Context, pairKey string) (time.Time, bool, error)
	Record(ctx context.Context, pairKey string, at time.Time) error
}

// InMemoryHistory is the default pair history.
type InMemoryHistory struct {
	mu    sync.RWMutex
	pairs map[string]time.Time
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{pairs: make(map[string]time.Time)}
}

func (h *InMemoryHistory) LastRecorded(_ context.Context, pairKey string) (time.Time, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	at, ok := h.pairs[pairKey]
	return at, ok, nil
}

func (h *InMemoryHistory) Record(_ context.Context, pairKey string, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pairs[pairKey] = at
	return nil
}
