package messaging

import (
	"sort"
	"sync"
)

// keyedMutex serialises work per conversation id. Lock acquires several keys in sorted order so
// that operations spanning conversations cannot deadlock each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until every key is held and returns the matching unlock.
func (k *keyedMutex) Lock(keys ...string) (unlock func()) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	held := make([]*refLock, 0, len(sorted))
	for _, key := range sorted {
		l := k.acquire(key)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			k.release(sorted[i])
		}
	}
}

func (k *keyedMutex) acquire(key string) *refLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *keyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
