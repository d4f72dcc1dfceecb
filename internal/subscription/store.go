package subscription

import (
	"context"
	"sync"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// Store persists subscriptions. Implementations must be safe for concurrent
// use.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id domain.SubscriptionID) (*Subscription, error)
	Delete(ctx context.Context, id domain.SubscriptionID) error
	ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*Subscription, error)
	ListAll(ctx context.Context) ([]*Subscription, error)
}

// Tracker records the last item version each subscription was credited a hit
// for, making evaluation idempotent per (subscription, item, item-version).
type Tracker interface {
	LastHitVersion(ctx context.Context, subID domain.SubscriptionID, itemID domain.ItemID) (int64, bool, error)
	RecordHit(ctx context.Context, subID domain.SubscriptionID, itemID domain.ItemID, version int64) error
}

// InMemoryStore is the default subscription store.
type InMemoryStore struct {
	mu   sync.RWMutex
	subs map[domain.SubscriptionID]*Subscription
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[domain.SubscriptionID]*Subscription)}
}

func (s *InMemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; ok {
		return sentinel.ErrConflict
	}
	c := *sub
	s.subs[sub.ID] = &c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.SubscriptionID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subs[id]; ok {
		c := *sub
		return &c, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID domain.UserID) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Subscription
	for _, sub := range s.subs {
		if sub.OwnerID == ownerID {
			c := *sub
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		c := *sub
		out = append(out, &c)
	}
	return out, nil
}

type pairVersion struct {
	sub  domain.SubscriptionID
	item domain.ItemID
}

// InMemoryTracker is the default hit tracker.
type InMemoryTracker struct {
	mu   sync.RWMutex
	hits map[pairVersion]int64
}

func NewInMemoryTracker() *InMemoryTracker {
	return &InMemoryTracker{hits: make(map[pairVersion]int64)}
}

func (t *InMemoryTracker) LastHitVersion(_ context.Context, subID domain.SubscriptionID, itemID domain.ItemID) (int64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.hits[pairVersion{sub: subID, item: itemID}]
	return v, ok, nil
}

func (t *InMemoryTracker) RecordHit(_ context.Context, subID domain.SubscriptionID, itemID domain.ItemID, version int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := pairVersion{sub: subID, item: itemID}
	if v, ok := t.hits[key]; !ok || version > v {
		t.hits[key] = version
	}
	return nil
}
