// Package persistence is the product persistence facade. Callers use one
// contract regardless of which record store backs the current identity.
package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

const componentName = "persistence"

// ErrProductNotFound is returned for ids that do not exist in the current partition.
var ErrProductNotFound = fmt.Errorf("%w: no product with that id", product.ErrNotFound)

// Facade is the product CRUD contract scoped to one identity.
type Facade interface {
	// AddProduct assigns id and scan date and stores p. Avoid-list saves with
	// a barcode already on the avoid list return the existing record.
	AddProduct(ctx context.Context, p *product.Product) (*product.Product, error)
	GetProductByClientSideID(ctx context.Context, id string) (*product.Product, error)
	ListProducts(ctx context.Context, filter product.Filter) ([]*product.Product, error)
	RemoveProduct(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}

// RecordStore is a partitioned product store. Delete of a missing id returns
// an error wrapping product.ErrNotFound.
type RecordStore interface {
	Insert(ctx context.Context, partition string, p *product.Product) (*product.Product, error)
	Query(ctx context.Context, partition string, filter product.Filter) ([]*product.Product, error)
	Delete(ctx context.Context, partition, id string) error
	Clear(ctx context.Context, partition string) error
}

// StoreFacade implements Facade over a RecordStore for one partition.
type StoreFacade struct {
	store     RecordStore
	partition string
	backend   string
	lock      *sync.Mutex
	publisher events.Publisher
	log       logger.Logger
	now       func() time.Time
}

// Partition returns the partition key this facade writes to.
func (f *StoreFacade) Partition() string {
	return f.partition
}

// Backend names the record store in use, "memory" or "remote".
func (f *StoreFacade) Backend() string {
	return f.backend
}

// AddProduct implements Facade.
func (f *StoreFacade) AddProduct(ctx context.Context, p *product.Product) (*product.Product, error) {
	if p == nil {
		return nil, errors.Newf("nil product").
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	// Dedupe check and insert must not interleave within a partition.
	f.lock.Lock()
	defer f.lock.Unlock()

	// ctx may have been cancelled while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	if p.Avoided && p.Barcode != "" {
		existing, err := f.store.Query(ctx, f.partition, product.Filter{
			Barcode: p.Barcode,
			Avoided: product.Bool(true),
			Limit:   1,
		})
		if err != nil {
			return nil, f.writeFailure(err, "avoid list lookup")
		}
		if len(existing) > 0 {
			f.log.Debug("barcode already on avoid list",
				logger.String("barcode", p.Barcode),
				logger.String("product_id", existing[0].ID))
			return existing[0], nil
		}
	}

	rec := p.Clone()
	rec.ID = uuid.NewString()
	rec.ScanDate = f.now()

	stored, err := f.store.Insert(ctx, f.partition, rec)
	if err != nil {
		return nil, f.writeFailure(err, "insert")
	}

	f.publisher.TryPublish(events.NewProductEvent(events.KindProductAdded, f.partition, stored))
	f.log.Info("product stored",
		logger.String("product_id", stored.ID),
		logger.String("verdict", string(stored.Verdict)),
		logger.Bool("avoided", stored.Avoided),
		logger.String("backend", f.backend))
	return stored, nil
}

// GetProductByClientSideID implements Facade.
func (f *StoreFacade) GetProductByClientSideID(ctx context.Context, id string) (*product.Product, error) {
	if id == "" {
		return nil, ErrProductNotFound
	}
	found, err := f.store.Query(ctx, f.partition, product.Filter{ID: id, Limit: 1})
	if err != nil {
		return nil, f.readFailure(err, "get")
	}
	if len(found) == 0 {
		return nil, ErrProductNotFound
	}
	return found[0], nil
}

// ListProducts implements Facade. Results are newest first.
func (f *StoreFacade) ListProducts(ctx context.Context, filter product.Filter) ([]*product.Product, error) {
	out, err := f.store.Query(ctx, f.partition, filter)
	if err != nil {
		return nil, f.readFailure(err, "list")
	}
	return out, nil
}

// RemoveProduct implements Facade.
func (f *StoreFacade) RemoveProduct(ctx context.Context, id string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.store.Delete(ctx, f.partition, id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return ErrProductNotFound
		}
		return f.writeFailure(err, "delete")
	}
	f.publisher.TryPublish(events.Event{
		Kind:      events.KindProductRemoved,
		Partition: f.partition,
		ProductID: id,
		Timestamp: f.now(),
	})
	return nil
}

// ClearAll implements Facade.
func (f *StoreFacade) ClearAll(ctx context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.store.Clear(ctx, f.partition); err != nil {
		return f.writeFailure(err, "clear")
	}
	f.publisher.TryPublish(events.Event{
		Kind:      events.KindProductsCleared,
		Partition: f.partition,
		Timestamp: f.now(),
	})
	return nil
}

func (f *StoreFacade) writeFailure(err error, operation string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return aborted(err)
	}
	f.log.Error("record store write failed",
		logger.String("operation", operation),
		logger.String("backend", f.backend),
		logger.Error(err))
	return errors.New(fmt.Errorf("%w: %w", product.ErrPersistenceFailure, err)).
		Component(componentName).
		Category(errors.CategoryPersistence).
		Context("operation", operation).
		Context("backend", f.backend).
		Build()
}

func (f *StoreFacade) readFailure(err error, operation string) error {
	return errors.New(fmt.Errorf("failed to %s products: %w", operation, err)).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("backend", f.backend).
		Build()
}

func aborted(cause error) error {
	return errors.New(fmt.Errorf("%w: %w", product.ErrAborted, cause)).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Build()
}
