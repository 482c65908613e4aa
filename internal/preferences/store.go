// Package preferences owns the user preference snapshot of one identity and
// persists it per partition.
package preferences

import (
	"context"
	"fmt"
	"sync"

	"github.com/tphakala/foodscan/internal/product"
)

// ErrNotFound is returned by stores with no preferences for a partition.
var ErrNotFound = fmt.Errorf("preferences %w", product.ErrNotFound)

// Store persists preferences per partition. Get of an unknown partition
// returns an error wrapping product.ErrNotFound.
type Store interface {
	Get(ctx context.Context, partition string) (product.UserPreferences, error)
	Save(ctx context.Context, partition string, prefs product.UserPreferences) error
}

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]product.UserPreferences
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]product.UserPreferences)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, partition string) (product.UserPreferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[partition]
	if !ok {
		return product.UserPreferences{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, partition string, prefs product.UserPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[partition] = prefs.Clone()
	return nil
}
