// Package entities contains the GORM models of the remote record store.
package entities

import (
	"slices"
	"time"

	"github.com/tphakala/foodscan/internal/product"
)

// ProductRecord is one stored product, scoped to an identity partition.
// Slices are stored as JSON columns.
type ProductRecord struct {
	ID                 string                      `gorm:"primaryKey;size:36"`
	Partition          string                      `gorm:"column:partition_key;index:idx_products_partition_date,priority:1;index:idx_products_partition_barcode,priority:1;size:128;not null"`
	Name               string                      `gorm:"size:255;not null"`
	Brand              string                      `gorm:"size:255"`
	Barcode            string                      `gorm:"index:idx_products_partition_barcode,priority:2;size:64"`
	Ingredients        []string                    `gorm:"serializer:json;type:text"`
	Calories           *float64                    `gorm:""`
	Image              string                      `gorm:"size:1024"`
	Categories         []string                    `gorm:"serializer:json;type:text"`
	Verdict            string                      `gorm:"size:8;not null"`
	FlaggedIngredients []product.FlaggedIngredient `gorm:"serializer:json;type:text"`
	OCRText            string                      `gorm:"type:text"`
	ScanDate           time.Time                   `gorm:"index:idx_products_partition_date,priority:2;not null"`
	Source             string                      `gorm:"size:16"`
	Avoided            bool                        `gorm:"index;not null;default:false"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (ProductRecord) TableName() string {
	return "products"
}

// FromProduct converts a domain product into a record for partition.
func FromProduct(partition string, p *product.Product) *ProductRecord {
	rec := &ProductRecord{
		ID:                 p.ID,
		Partition:          partition,
		Name:               p.Name,
		Brand:              p.Brand,
		Barcode:            p.Barcode,
		Ingredients:        slices.Clone(p.Ingredients),
		Image:              p.Image,
		Categories:         slices.Clone(p.Categories),
		Verdict:            string(p.Verdict),
		FlaggedIngredients: slices.Clone(p.FlaggedIngredients),
		OCRText:            p.OCRText,
		ScanDate:           p.ScanDate,
		Source:             string(p.Source),
		Avoided:            p.Avoided,
	}
	if p.Calories != nil {
		v := *p.Calories
		rec.Calories = &v
	}
	return rec
}

// ToProduct converts the record back into a domain product.
func (r *ProductRecord) ToProduct() *product.Product {
	p := &product.Product{
		ID:                 r.ID,
		Name:               r.Name,
		Brand:              r.Brand,
		Barcode:            r.Barcode,
		Ingredients:        slices.Clone(r.Ingredients),
		Image:              r.Image,
		Categories:         slices.Clone(r.Categories),
		Verdict:            product.Verdict(r.Verdict),
		FlaggedIngredients: slices.Clone(r.FlaggedIngredients),
		OCRText:            r.OCRText,
		ScanDate:           r.ScanDate,
		Source:             product.Source(r.Source),
		Avoided:            r.Avoided,
	}
	if p.FlaggedIngredients == nil {
		p.FlaggedIngredients = []product.FlaggedIngredient{}
	}
	if r.Calories != nil {
		v := *r.Calories
		p.Calories = &v
	}
	return p
}
