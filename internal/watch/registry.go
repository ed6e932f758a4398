package watch

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry hands out one Manager per user ID, created on first access
// and cached in a capacity-bounded LRU. Eviction is safe at any point:
// every manager mutation persists immediately, so a re-created manager
// picks up exactly where the evicted one left off.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *Manager]
	factory func(userID string) *Manager
}

// NewRegistry creates a registry bounded to size entries. The factory
// builds a manager for a user ID not currently cached.
func NewRegistry(size int, factory func(userID string) *Manager) (*Registry, error) {
	if size <= 0 {
		size = 8
	}
	cache, err := lru.New[string, *Manager](size)
	if err != nil {
		return nil, fmt.Errorf("create manager cache: %w", err)
	}
	return &Registry{cache: cache, factory: factory}, nil
}

// Get returns the manager for a user, creating it on first access.
func (r *Registry) Get(userID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache.Get(userID); ok {
		return m
	}
	m := r.factory(userID)
	r.cache.Add(userID, m)
	return m
}

// Len returns the number of cached managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
