package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Set stores value under key for ttl. A non-positive ttl keeps the key forever.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry

	if ttl > 0 {
		// Start a cleanup goroutine
		go func() {
			time.Sleep(ttl)

			s.mu.Lock()
			defer s.mu.Unlock()

			// Only delete if the entry hasn't been rewritten since
			if stored, exists := s.entries[key]; exists && !stored.expiresAt.After(entry.expiresAt) {
				delete(s.entries, key)
			}
		}()
	}

	return nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists {
		return "", core.ErrNotFound
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return "", core.ErrNotFound
	}

	return entry.value, nil
}
