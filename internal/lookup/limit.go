package lookup

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/product"
)

// Limited throttles calls to an adapter with a token bucket shared by all
// scans, so bursts of detections never exceed the provider quota.
type Limited struct {
	next    Adapter
	limiter *rate.Limiter
}

// NewLimited allows perSecond requests with the given burst. A non-positive
// perSecond disables limiting.
func NewLimited(next Adapter, perSecond float64, burst int) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Name returns the wrapped adapter's name.
func (l *Limited) Name() string {
	return l.next.Name()
}

// GetProductByBarcode waits for a token, then calls the wrapped adapter.
// A cancelled wait yields an error result wrapping product.ErrAborted. A wait
// that would outlast the deadline wraps product.ErrProvider instead.
func (l *Limited) GetProductByBarcode(ctx context.Context, code string) Result {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Failed(l.Name(), errors.New(fmt.Errorf("%w: rate limit wait: %w", product.ErrAborted, err)).
				Component(componentName).
				Category(errors.CategoryCancellation).
				Context("provider", l.Name()).
				Build())
		}
		return Failed(l.Name(), errors.New(fmt.Errorf("%w: rate limit wait: %w", product.ErrProvider, err)).
			Component(componentName).
			Category(errors.CategoryLimit).
			Context("provider", l.Name()).
			Build())
	}
	return l.next.GetProductByBarcode(ctx, code)
}
