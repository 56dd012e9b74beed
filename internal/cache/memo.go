// Package cache provides memoization for derived views.
package cache

import "sync"

// Memo caches the last computed value for a key. A new key replaces the entry;
// there is no history, so alternating keys recompute every time. This mirrors
// selector memoization: recompute only when the identity of the inputs changes.
type Memo[K comparable, V any] struct {
	mutex  sync.Mutex
	key    K
	value  V
	filled bool
	hits   int
	misses int
}

// Get returns the cached value for key, calling compute on a miss.
func (m *Memo[K, V]) Get(key K, compute func() V) V {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.filled && m.key == key {
		m.hits++
		return m.value
	}

	m.misses++
	m.value = compute()
	m.key = key
	m.filled = true
	return m.value
}

// Stats returns hit and miss counts
func (m *Memo[K, V]) Stats() (hits, misses int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.hits, m.misses
}
