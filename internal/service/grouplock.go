package service

import "sync"

// groupLocks serializes mutations per group. Concurrent expense and
// settlement recordings for the same group apply one at a time; different
// groups proceed in parallel.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given group, creating it on first use.
// The caller must call the returned unlock function.
func (g *groupLocks) Lock(groupID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[groupID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
