package booking

import (
	"context"
	"sync"
)

// KeyedLock is an in-process Locker: one mutex per key, created on
// demand and dropped when the last waiter leaves. Suitable for a single
// node; multi-node deployments use the redis locker instead.
type KeyedLock struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{held: make(map[string]*lockEntry)}
}

func (l *KeyedLock) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.held[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.held[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, e, true) })
	}, nil
}

func (l *KeyedLock) release(key string, e *lockEntry, locked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if locked {
		<-e.ch
	}
	e.refs--
	if e.refs == 0 {
		delete(l.held, key)
	}
}
