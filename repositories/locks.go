package repositories

import (
	"sync"
)

// keyedLocks hands out one mutex per aggregate so concurrent writers on
// the same document are serialized while different aggregates proceed
// in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int]*sync.Mutex)}
}

// Acquire blocks until the aggregate's lock is held and returns the
// release func.
func (k *keyedLocks) Acquire(id int) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
