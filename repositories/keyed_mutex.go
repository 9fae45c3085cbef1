package repositories

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes writes per message identifier. Contention is
// scoped to one identifier; unrelated messages never queue behind each
// other. Entries are reference-counted and removed once the last
// holder releases, so the map does not grow with message history.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// lock acquires the mutex for the identifier and returns its release
// function.
func (k *keyedMutex) lock(id uuid.UUID) func() {
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
