package lookup

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/foodscan/internal/product"
)

const (
	DefaultCacheTTL         = 24 * time.Hour
	DefaultNegativeCacheTTL = 15 * time.Minute
)

// Cached memoises an adapter's found and not-found results. Provider errors
// are never cached so the next scan retries the provider.
type Cached struct {
	next        Adapter
	cache       *cache.Cache
	ttl         time.Duration
	negativeTTL time.Duration
}

type cachedEntry struct {
	found   bool
	product *product.PartialProduct
}

// NewCached wraps next with a result cache. Zero TTLs take the defaults;
// a negative negativeTTL disables negative caching.
func NewCached(next Adapter, ttl, negativeTTL time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if negativeTTL == 0 {
		negativeTTL = DefaultNegativeCacheTTL
	}
	return &Cached{
		next:        next,
		cache:       cache.New(ttl, ttl*2),
		ttl:         ttl,
		negativeTTL: negativeTTL,
	}
}

// Name returns the wrapped adapter's name.
func (c *Cached) Name() string {
	return c.next.Name()
}

// GetProductByBarcode serves from cache when possible.
func (c *Cached) GetProductByBarcode(ctx context.Context, code string) Result {
	if v, ok := c.cache.Get(code); ok {
		entry := v.(cachedEntry)
		if entry.found {
			return Found(c.Name(), clonePartial(entry.product))
		}
		return NotFound(c.Name())
	}

	res := c.next.GetProductByBarcode(ctx, code)
	switch res.Status {
	case StatusFound:
		c.cache.Set(code, cachedEntry{found: true, product: clonePartial(res.Product)}, c.ttl)
	case StatusNotFound:
		if c.negativeTTL > 0 {
			c.cache.Set(code, cachedEntry{}, c.negativeTTL)
		}
	}
	return res
}

// Flush drops every cached result.
func (c *Cached) Flush() {
	c.cache.Flush()
}

// ItemCount returns the number of cached barcodes, including expired entries
// not yet cleaned up.
func (c *Cached) ItemCount() int {
	return c.cache.ItemCount()
}

func clonePartial(p *product.PartialProduct) *product.PartialProduct {
	if p == nil {
		return nil
	}
	c := *p
	c.Ingredients = slices.Clone(p.Ingredients)
	if p.Calories != nil {
		v := *p.Calories
		c.Calories = &v
	}
	return &c
}
