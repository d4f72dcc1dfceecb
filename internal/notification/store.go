package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// Store persists notifications. Implementations must be safe for concurrent
// use, and UpsertByDedupKey must be atomic per (recipient, dedup key): two
// concurrent publishes of the same logical event may never create two unread
// records.
type Store interface {
	// UpsertByDedupKey either bumps the existing unread notification with
	// the same recipient and dedup key (updating payload and UpdatedAt) or
	// inserts n as a new unread record. Returns the stored notification and
	// whether it was newly created.
	UpsertByDedupKey(ctx context.Context, n *Notification) (*Notification, bool, error)

	Get(ctx context.Context, id domain.NotificationID) (*Notification, error)
	MarkRead(ctx context.Context, id domain.NotificationID, at time.Time) error
	MarkDelivered(ctx context.Context, id domain.NotificationID) error

	ListUnread(ctx context.Context, userID domain.UserID) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID domain.UserID) (int, error)

	// ListUndelivered returns unread, undelivered notifications created
	// after cutoff, oldest first. Used by the reconciliation sweep.
	ListUndelivered(ctx context.Context, cutoff time.Time) ([]*Notification, error)
}

type unreadKey struct {
	recipient domain.UserID
	dedup     string
}

// InMemoryStore is the default notification store. A single mutex makes the
// dedup-key upsert a compare-and-swap.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[domain.NotificationID]*Notification
	unreadByKey   map[unreadKey]domain.NotificationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		notifications: make(map[domain.NotificationID]*Notification),
		unreadByKey:   make(map[unreadKey]domain.NotificationID),
	}
}

func (s *InMemoryStore) UpsertByDedupKey(_ context.Context, n *Notification) (*Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unreadKey{recipient: n.Recipient, dedup: n.DedupKey}
	if existingID, ok := s.unreadByKey[key]; ok {
		existing := s.notifications[existingID]
		existing.Payload = n.Payload
		existing.UpdatedAt = n.UpdatedAt
		c := *existing
		return &c, false, nil
	}

	c := *n
	s.notifications[n.ID] = &c
	s.unreadByKey[key] = n.ID
	out := c
	return &out, true, nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.NotificationID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notifications[id]; ok {
		c := *n
		return &c, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) MarkRead(_ context.Context, id domain.NotificationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !n.Read {
		n.Read = true
		n.UpdatedAt = at
		delete(s.unreadByKey, unreadKey{recipient: n.Recipient, dedup: n.DedupKey})
	}
	return nil
}

func (s *InMemoryStore) MarkDelivered(_ context.Context, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.Delivered = true
	return nil
}

func (s *InMemoryStore) ListUnread(_ context.Context, userID domain.UserID) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.notifications {
		if n.Recipient == userID && !n.Read {
			c := *n
			out = append(out, &c)
		}
	}
	// Most recently touched first, id tiebreak for determinism.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemoryStore) UnreadCount(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.Recipient == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) ListUndelivered(_ context.Context, cutoff time.Time) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.notifications {
		if !n.Read && !n.Delivered && n.CreatedAt.After(cutoff) {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
