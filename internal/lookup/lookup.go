// Package lookup resolves barcodes to partial product records through an
// ordered chain of external provider adapters.
package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

const componentName = "lookup"

// GTIN-8 through GTIN-14.
const (
	minBarcodeDigits = 8
	maxBarcodeDigits = 14
)

// Status is the tag of a lookup Result.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusError
)

// String returns the lowercase status name used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the tagged outcome of a single adapter lookup.
type Result struct {
	Provider string
	Status   Status
	Product  *product.PartialProduct
	Err      error
}

// Found returns a successful result carrying the raw provider fields.
func Found(provider string, fields *product.PartialProduct) Result {
	return Result{Provider: provider, Status: StatusFound, Product: fields}
}

// NotFound returns a clean miss.
func NotFound(provider string) Result {
	return Result{Provider: provider, Status: StatusNotFound}
}

// Failed returns an unexpected provider failure.
func Failed(provider string, err error) Result {
	return Result{Provider: provider, Status: StatusError, Err: err}
}

// Adapter is an external barcode database. Implementations return raw,
// unevaluated fields and never classify.
type Adapter interface {
	Name() string
	GetProductByBarcode(ctx context.Context, code string) Result
}

// Observer receives the outcome of every adapter call in a chain.
type Observer interface {
	RecordLookup(provider, status string)
}

// Chain tries adapters in order and stops at the first hit.
type Chain struct {
	adapters []Adapter
	observer Observer
	log      logger.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithObserver reports per-adapter outcomes, typically to metrics.
func WithObserver(o Observer) ChainOption {
	return func(c *Chain) { c.observer = o }
}

// WithLogger sets the chain logger.
func WithLogger(l logger.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

// NewChain builds a fallback chain; nil adapters are skipped.
func NewChain(adapters []Adapter, opts ...ChainOption) *Chain {
	c := &Chain{}
	for _, a := range adapters {
		if a != nil {
			c.adapters = append(c.adapters, a)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module(componentName)
	}
	return c
}

// Adapters returns the provider names in priority order.
func (c *Chain) Adapters() []string {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Resolve looks code up in every adapter until one finds it. The second
// adapter is only called after the first has definitively missed or failed.
// It returns an error wrapping product.ErrNotFound when every adapter
// missed or code is not a GTIN, or product.ErrAborted when ctx was cancelled.
func (c *Chain) Resolve(ctx context.Context, code string) (*product.PartialProduct, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New(fmt.Errorf("%w: empty barcode", product.ErrNotFound)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if !ValidBarcode(code) {
		return nil, errors.New(fmt.Errorf("%w: invalid barcode", product.ErrNotFound)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("barcode_length", len(code)).
			Build()
	}

	outcomes := make([]string, 0, len(c.adapters))
	for _, adapter := range c.adapters {
		if err := ctx.Err(); err != nil {
			return nil, aborted(code, err)
		}

		res := adapter.GetProductByBarcode(ctx, code)
		if c.observer != nil {
			c.observer.RecordLookup(adapter.Name(), res.Status.String())
		}

		if err := ctx.Err(); err != nil {
			return nil, aborted(code, err)
		}

		switch res.Status {
		case StatusFound:
			if res.Product == nil {
				res.Product = &product.PartialProduct{}
			}
			if res.Product.Barcode == "" {
				res.Product.Barcode = code
			}
			c.log.Debug("barcode resolved",
				logger.String("provider", adapter.Name()),
				logger.String("barcode", code))
			return res.Product, nil
		case StatusNotFound:
			c.log.Debug("barcode not found by provider",
				logger.String("provider", adapter.Name()),
				logger.String("barcode", code))
			outcomes = append(outcomes, adapter.Name()+": not found")
		default:
			c.log.Warn("lookup provider error",
				logger.String("provider", adapter.Name()),
				logger.String("barcode", code),
				logger.Error(res.Err))
			outcomes = append(outcomes, fmt.Sprintf("%s: %v", adapter.Name(), res.Err))
		}
	}

	return nil, errors.New(fmt.Errorf("%w: barcode %s", product.ErrNotFound, code)).
		Component(componentName).
		Category(errors.CategoryNotFound).
		Context("barcode", code).
		Context("providers", strings.Join(outcomes, "; ")).
		Build()
}

// ValidBarcode reports whether code is 8 to 14 ASCII digits.
func ValidBarcode(code string) bool {
	if len(code) < minBarcodeDigits || len(code) > maxBarcodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func aborted(code string, cause error) error {
	return errors.New(fmt.Errorf("%w: %w", product.ErrAborted, cause)).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("barcode", code).
		Build()
}
