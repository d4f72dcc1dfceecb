package engine

import (
	"sync"

	"reclaim/pkg/domain"
)

// keyedMutex serializes work per item id while leaving distinct items fully
// parallel. Entries are reference counted and removed once the last holder
// unlocks, so the map does not grow with registry size.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.ItemID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.ItemID]*lockEntry)}
}

// Lock acquires the mutex for id and returns its unlock function.
func (k *keyedMutex) Lock(id domain.ItemID) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
