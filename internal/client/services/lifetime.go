package services

import "sync"

// Lifetime scopes outstanding requests to the component that issued them.
// Requests are not aborted when the lifetime ends; their results are
// dropped instead.
type Lifetime struct {
	mu     sync.RWMutex
	closed bool
}

// Deliver runs apply unless the lifetime is closed and reports whether it
// ran. apply must not call Close.
func (l *Lifetime) Deliver(apply func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	apply()
	return true
}

// Close ends the lifetime. Once it returns no Deliver is running or will run.
func (l *Lifetime) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *Lifetime) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}
