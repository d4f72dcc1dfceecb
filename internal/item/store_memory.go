package item

import (
	"context"
	"sync"
	"time"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// InMemoryStore is the default item store. A secondary fingerprint index
// keeps exact-match candidate lookup O(1) in the number of collisions.
type InMemoryStore struct {
	mu            sync.RWMutex
	items         map[domain.ItemID]*Item
	byFingerprint map[string]map[domain.ItemID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items:         make(map[domain.ItemID]*Item),
		byFingerprint: make(map[string]map[domain.ItemID]struct{}),
	}
}

func (s *InMemoryStore) Create(_ context.Context, it *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return sentinel.ErrConflict
	}
	s.items[it.ID] = it.Clone()
	s.indexFingerprint(it.ID, it.Fingerprint)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.ItemID) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if it, ok := s.items[id]; ok {
		return it.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.unindexFingerprint(id, it.Fingerprint)
	delete(s.items, id)
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id domain.ItemID, status domain.Status, updatedAt time.Time, expectedVersion int64) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if it.Version != expectedVersion {
		return nil, sentinel.ErrConflict
	}
	it.Status = status
	it.UpdatedAt = updatedAt
	it.Version++
	return it.Clone(), nil
}

func (s *InMemoryStore) SetMatchPending(_ context.Context, id domain.ItemID, pending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	it.MatchPending = pending
	return nil
}

func (s *InMemoryStore) SetLastMatchedAt(_ context.Context, id domain.ItemID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	it.LastMatchedAt = at
	return nil
}

func (s *InMemoryStore) FindByFingerprint(_ context.Context, fp string) ([]*Item, error) {
	if fp == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.byFingerprint[fp]
	if !ok {
		return nil, nil
	}
	out := make([]*Item, 0, len(ids))
	for id := range ids {
		out = append(out, s.items[id].Clone())
	}
	return out, nil
}

func (s *InMemoryStore) ListFingerprinted(_ context.Context) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	for _, it := range s.items {
		if it.Fingerprint != "" {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListMatchPending(_ context.Context) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	for _, it := range s.items {
		if it.MatchPending {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

// callers hold s.mu
func (s *InMemoryStore) indexFingerprint(id domain.ItemID, fp string) {
	if fp == "" {
		return
	}
	set, ok := s.byFingerprint[fp]
	if !ok {
		set = make(map[domain.ItemID]struct{})
		s.byFingerprint[fp] = set
	}
	set[id] = struct{}{}
}

func (s *InMemoryStore) unindexFingerprint(id domain.ItemID, fp string) {
	if fp == "" {
		return
	}
	if set, ok := s.byFingerprint[fp]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(s.byFingerprint, fp)
		}
	}
}
