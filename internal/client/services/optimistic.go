package services

import (
	"context"
	"errors"
	"sync"
)

// ErrTransitionInFlight rejects a second transition for an item whose
// previous transition has not settled.
var ErrTransitionInFlight = errors.New("transition already in flight")

// Optimistic applies a local change, confirms it remotely and reverts it if
// confirmation fails. apply returns the snapshot revert needs.
func Optimistic[S any](ctx context.Context, apply func() S, confirm func(ctx context.Context) error, revert func(S)) error {
	prev := apply()
	if err := confirm(ctx); err != nil {
		revert(prev)
		return err
	}
	return nil
}

// KeyedGate admits at most one holder per key and rejects the rest.
// The zero value is ready to use.
type KeyedGate[K comparable] struct {
	mu   sync.Mutex
	busy map[K]struct{}
}

// TryAcquire takes the gate for k. ok is false when k is already held.
func (g *KeyedGate[K]) TryAcquire(k K) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy == nil {
		g.busy = make(map[K]struct{})
	}
	if _, held := g.busy[k]; held {
		return nil, false
	}
	g.busy[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, k)
			g.mu.Unlock()
		})
	}, true
}

func (g *KeyedGate[K]) Busy(k K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.busy[k]
	return held
}

// KeyedMutex serializes holders of the same key in arrival order; waiters
// queue instead of being rejected. The zero value is ready to use.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

// Lock blocks until k is free or ctx is done.
func (m *KeyedMutex[K]) Lock(ctx context.Context, k K) (unlock func(), err error) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[K]*keyedLock)
	}
	l := m.locks[k]
	if l == nil {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		m.locks[k] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.put(k, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.put(k, l)
		})
	}, nil
}

func (m *KeyedMutex[K]) put(k K, l *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, k)
	}
}
