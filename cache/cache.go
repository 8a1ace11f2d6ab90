// Package cache provides the injectable dataset cache handed into loaders,
// decoupled from the computation core. Implementations: Nop, Memory and the
// SQLite-backed store.
package cache

import (
	"sync"
	"time"
)

// Cache stores raw dataset payloads by key. A ttl of zero means no expiry.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
}

// Nop is a cache that stores nothing.
type Nop struct{}

// Get always misses.
func (Nop) Get(string) ([]byte, bool, error) { return nil, false, nil }

// Put discards the value.
func (Nop) Put(string, []byte, time.Duration) error { return nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache, mainly for tests and single runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the stored value unless it is absent or expired.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Put stores a copy of the value.
func (m *Memory) Put(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}
