package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/foodscan/internal/product"
)

// DefaultSessionTTL is how long an idle session partition is kept in memory.
const DefaultSessionTTL = 24 * time.Hour

// MemoryStore is the session-local record store. Each partition expires
// after ttl without access.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates an in-memory store. A non-positive ttl takes the default.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup), ttl: ttl}
}

// records returns the partition slice and refreshes its expiry. Caller holds mu.
func (m *MemoryStore) records(partition string) []*product.Product {
	var recs []*product.Product
	if v, ok := m.cache.Get(partition); ok {
		recs = v.([]*product.Product)
	}
	return recs
}

func (m *MemoryStore) store(partition string, recs []*product.Product) {
	m.cache.Set(partition, recs, m.ttl)
}

// Insert implements RecordStore.
func (m *MemoryStore) Insert(ctx context.Context, partition string, p *product.Product) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.records(partition)
	recs = append(slices.Clip(recs), p.Clone())
	m.store(partition, recs)
	return p.Clone(), nil
}

// Query implements RecordStore. Results are newest first; records with equal
// scan dates keep reverse insertion order.
func (m *MemoryStore) Query(ctx context.Context, partition string, f product.Filter) ([]*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	recs := m.records(partition)
	if recs != nil {
		m.store(partition, recs)
	}
	m.mu.Unlock()

	out := make([]*product.Product, 0)
	for i := len(recs) - 1; i >= 0; i-- {
		if f.Matches(recs[i]) {
			out = append(out, recs[i].Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *product.Product) int {
		return b.ScanDate.Compare(a.ScanDate)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Delete implements RecordStore.
func (m *MemoryStore) Delete(ctx context.Context, partition, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.records(partition)
	idx := slices.IndexFunc(recs, func(p *product.Product) bool { return p.ID == id })
	if idx < 0 {
		return ErrProductNotFound
	}
	m.store(partition, slices.Delete(slices.Clone(recs), idx, idx+1))
	return nil
}

// Clear implements RecordStore.
func (m *MemoryStore) Clear(ctx context.Context, partition string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(partition)
	return nil
}

// Partitions returns the number of live partitions.
func (m *MemoryStore) Partitions() int {
	return m.cache.ItemCount()
}
