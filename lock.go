package imgcache

import "sync"

// keyedMutex serializes operations per cache key. The lock is held across
// the full "lookup, decide, maybe regenerate, write" sequence so concurrent
// requests for the same source accumulate into one manifest instead of one
// overwriting the other's outputs. Distinct keys proceed independently.
//
// Locking is in-process only. Two independent build processes sharing a
// cache directory may race; that is an accepted limitation.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// lock acquires the key's mutex and returns its unlock function. The entry
// is dropped from the map once the last waiter releases it.
func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
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
