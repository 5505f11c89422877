package services

import "sync"

// RouteLocks serialises work on a single route inside this process.
// Entries are dropped once no goroutine holds or waits on them.
type RouteLocks struct {
	mu    sync.Mutex
	locks map[int64]*routeLock
}

type routeLock struct {
	mu   sync.Mutex
	refs int
}

func NewRouteLocks() *RouteLocks {
	return &RouteLocks{locks: make(map[int64]*routeLock)}
}

// Lock blocks until routeID is free and returns the matching unlock func.
func (l *RouteLocks) Lock(routeID int64) func() {
	l.mu.Lock()
	lk, ok := l.locks[routeID]
	if !ok {
		lk = &routeLock{}
		l.locks[routeID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, routeID)
		}
		l.mu.Unlock()
	}
}

func (l *RouteLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
