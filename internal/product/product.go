// Package product defines the canonical product record produced by the scan
// pipeline together with the partial inputs and user preferences it is built from.
package product

import (
	"slices"
	"time"
)

// Sentinel display values used when a source could not resolve a field.
const (
	UnknownProduct          = "Unknown Product"
	UnknownBrand            = "Unknown Brand"
	IngredientsNotAvailable = "Ingredients not available"
	CategoryNatural         = "natural"
	DefaultPlaceholderImage = "https://static.foodscan.app/img/product-placeholder.png"
)

// Verdict is the binary evaluation outcome of a product.
type Verdict string

const (
	VerdictGood Verdict = "good"
	VerdictBad  Verdict = "bad"
)

// Source records how a product entered the system.
type Source string

const (
	SourceScan         Source = "scan"
	SourceOCR          Source = "ocr"
	SourceManual       Source = "manual"
	SourceAISuggestion Source = "ai_suggestion"
)

// Valid reports whether s is a known provenance tag.
func (s Source) Valid() bool {
	switch s {
	case SourceScan, SourceOCR, SourceManual, SourceAISuggestion:
		return true
	}
	return false
}

// FlaggedIngredient is an ingredient (or synthetic calorie entry) that
// violated a preference, with a human readable reason.
type FlaggedIngredient struct {
	Ingredient string `json:"ingredient"`
	Reason     string `json:"reason"`
}

// Product is the canonical stored record.
type Product struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Brand              string              `json:"brand"`
	Barcode            string              `json:"barcode,omitempty"`
	Ingredients        []string            `json:"ingredients"`
	Calories           *float64            `json:"calories,omitempty"`
	Image              string              `json:"image"`
	Categories         []string            `json:"categories"`
	Verdict            Verdict             `json:"verdict"`
	FlaggedIngredients []FlaggedIngredient `json:"flaggedIngredients"`
	OCRText            string              `json:"ocrText,omitempty"`
	ScanDate           time.Time           `json:"scanDate"`
	Source             Source              `json:"source"`
	Avoided            bool                `json:"avoided,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Ingredients = slices.Clone(p.Ingredients)
	c.Categories = slices.Clone(p.Categories)
	c.FlaggedIngredients = slices.Clone(p.FlaggedIngredients)
	if p.Calories != nil {
		v := *p.Calories
		c.Calories = &v
	}
	return &c
}

// Valid reports whether the record satisfies the product invariants:
// verdict agrees with the flag list and neither ingredients nor categories are empty.
func (p *Product) Valid() bool {
	if p == nil {
		return false
	}
	if (p.Verdict == VerdictGood) != (len(p.FlaggedIngredients) == 0) {
		return false
	}
	if p.Verdict != VerdictGood && p.Verdict != VerdictBad {
		return false
	}
	return len(p.Ingredients) > 0 && len(p.Categories) > 0
}

// PartialProduct is an unevaluated record produced by a lookup adapter,
// OCR extraction or a manual entry. It lacks id, scan date, verdict and categories.
type PartialProduct struct {
	Name        string   `json:"name,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	Image       string   `json:"image,omitempty"`
	OCRText     string   `json:"ocrText,omitempty"`
	Source      Source   `json:"source,omitempty"`

	// Avoided marks an explicit avoid-list save.
	Avoided bool `json:"avoided,omitempty"`
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
