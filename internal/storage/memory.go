package storage

import (
	"context"
	"sync"
)

// MemoryKV keeps values in a map. Nothing survives the process.
type MemoryKV struct {
	items  map[string]string
	mutex  sync.RWMutex
	closed bool
}

// NewMemoryKV creates an empty in-memory backend
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		items: make(map[string]string),
	}
}

// Get retrieves a value
func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}
	value, exists := m.items[key]
	return value, exists, nil
}

// Set stores a value
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.items[key] = value
	return nil
}

// Delete removes a value
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Size returns the number of stored keys
func (m *MemoryKV) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.items)
}

// Close drops all values
func (m *MemoryKV) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.items = make(map[string]string)
	m.closed = true
	return nil
}
