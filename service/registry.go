package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/portal/core"
)

// DefaultScreenTTL is how long an idle screen is kept alive
const DefaultScreenTTL = 15 * time.Minute

// Screen is a live screen instance owned by the registry.
type Screen interface {
	ID() string
	Close()
}

type registryEntry struct {
	screen    Screen
	expiresAt time.Time
}

// Registry owns the live screens. Screens are torn down on Remove, when
// they stay idle longer than the TTL, and on Close.
type Registry struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry creates a registry. A non-positive ttl selects DefaultScreenTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultScreenTTL
	}
	return &Registry{
		ttl:     ttl,
		entries: make(map[string]*registryEntry),
	}
}

// TTL is the idle lifetime of a screen
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// NewID returns a fresh screen id
func (r *Registry) NewID() string {
	return uuid.NewString()
}

// Add registers a screen
func (r *Registry) Add(screen Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[screen.ID()] = &registryEntry{
		screen:    screen,
		expiresAt: time.Now().Add(r.ttl),
	}
}

// Get returns a live screen and extends its lifetime.
func (r *Registry) Get(id string) (Screen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, core.ErrScreenNotFound
	}
	entry.expiresAt = time.Now().Add(r.ttl)
	return entry.screen, nil
}

// Remove tears a screen down. It must not be called from a screen callback.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return core.ErrScreenNotFound
	}
	entry.screen.Close()
	return nil
}

// Len returns the number of live screens
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep tears down every screen idle past its TTL and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	var expired []Screen

	r.mu.Lock()
	for id, entry := range r.entries {
		if now.After(entry.expiresAt) {
			expired = append(expired, entry.screen)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, screen := range expired {
		screen.Close()
	}
	return len(expired)
}

// Run sweeps expired screens every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Close tears down every screen
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.screen.Close()
	}
}
