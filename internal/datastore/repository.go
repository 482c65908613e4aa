package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/foodscan/internal/datastore/entities"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/product"
)

// Sentinel errors returned instead of GORM errors.
var (
	// ErrProductNotFound indicates the requested product record does not exist.
	ErrProductNotFound = fmt.Errorf("product record %w", product.ErrNotFound)

	// ErrPreferencesNotFound indicates no preferences are stored for the partition.
	ErrPreferencesNotFound = fmt.Errorf("preferences %w", product.ErrNotFound)
)

// ProductRepository stores products per partition. It satisfies the
// persistence record store contract.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Insert writes p into partition and returns the stored copy.
func (r *ProductRepository) Insert(ctx context.Context, partition string, p *product.Product) (*product.Product, error) {
	rec := entities.FromProduct(partition, p)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, dbError(err, "insert product").
			Context("partition", partition).
			Context("product_id", p.ID).
			Build()
	}
	return rec.ToProduct(), nil
}

// Query returns the products in partition matching f, newest first.
func (r *ProductRepository) Query(ctx context.Context, partition string, f product.Filter) ([]*product.Product, error) {
	q := r.db.WithContext(ctx).Where("partition_key = ?", partition)
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.Barcode != "" {
		q = q.Where("barcode = ?", f.Barcode)
	}
	if f.Avoided != nil {
		q = q.Where("avoided = ?", *f.Avoided)
	}
	q = q.Order("scan_date DESC").Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var recs []entities.ProductRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, dbError(err, "query products").
			Context("partition", partition).
			Build()
	}

	out := make([]*product.Product, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToProduct())
	}
	return out, nil
}

// Delete removes one product. A missing id yields ErrProductNotFound.
func (r *ProductRepository) Delete(ctx context.Context, partition, id string) error {
	result := r.db.WithContext(ctx).
		Where("partition_key = ? AND id = ?", partition, id).
		Delete(&entities.ProductRecord{})
	if result.Error != nil {
		return dbError(result.Error, "delete product").
			Context("partition", partition).
			Context("product_id", id).
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Clear removes every product in partition.
func (r *ProductRepository) Clear(ctx context.Context, partition string) error {
	err := r.db.WithContext(ctx).
		Where("partition_key = ?", partition).
		Delete(&entities.ProductRecord{}).Error
	if err != nil {
		return dbError(err, "clear products").
			Context("partition", partition).
			Build()
	}
	return nil
}

// PreferencesRepository stores one preferences row per partition.
type PreferencesRepository struct {
	db *gorm.DB
}

// NewPreferencesRepository creates a preferences repository.
func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns the stored preferences or ErrPreferencesNotFound.
func (r *PreferencesRepository) Get(ctx context.Context, partition string) (product.UserPreferences, error) {
	var rec entities.PreferencesRecord
	err := r.db.WithContext(ctx).Where("partition_key = ?", partition).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return product.UserPreferences{}, ErrPreferencesNotFound
	}
	if err != nil {
		return product.UserPreferences{}, dbError(err, "get preferences").
			Context("partition", partition).
			Build()
	}
	return rec.ToPreferences(), nil
}

// Save creates or replaces the preferences of partition.
func (r *PreferencesRepository) Save(ctx context.Context, partition string, prefs product.UserPreferences) error {
	rec := entities.FromPreferences(partition, prefs)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partition_key"}},
			UpdateAll: true,
		}).
		Create(rec).Error
	if err != nil {
		return dbError(err, "save preferences").
			Context("partition", partition).
			Build()
	}
	return nil
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(fmt.Errorf("failed to %s: %w", operation, err)).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
