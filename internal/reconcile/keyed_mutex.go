package reconcile

import (
	"sync"

	"ResetTracker/internal/domain"
)

// KeyedMutex serializes work per key while letting distinct keys proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[domain.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[domain.Key]*keyLock{}}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *KeyedMutex) Lock(key domain.Key) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[domain.Key]*keyLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
