// Package sessionlock provides per-key mutual exclusion for session writers.
package sessionlock

import (
	"context"
	"sync"
)

type entry struct {
	slot chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// Locker hands out one exclusive slot per key. Entries are dropped once no
// goroutine holds or waits for them.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

func (l *Locker) acquireEntry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseEntry(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Locker) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.releaseEntry(key, e)
		})
	}
}

// TryLock takes the lock for key without waiting. The returned func releases
// it and is safe to call more than once.
func (l *Locker) TryLock(key string) (func(), bool) {
	e := l.acquireEntry(key)
	select {
	case e.slot <- struct{}{}:
		return l.unlocker(key, e), true
	default:
		l.releaseEntry(key, e)
		return nil, false
	}
}

// Lock waits for the lock on key until ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)
	select {
	case e.slot <- struct{}{}:
		return l.unlocker(key, e), nil
	case <-ctx.Done():
		l.releaseEntry(key, e)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are currently tracked.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
