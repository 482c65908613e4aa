package entities

import (
	"slices"
	"time"

	"github.com/tphakala/foodscan/internal/product"
)

// PreferencesRecord holds the preferences of one identity partition.
type PreferencesRecord struct {
	Partition   string    `gorm:"column:partition_key;primaryKey;size:128"`
	Avoided     []string  `gorm:"serializer:json;type:text"`
	Custom      []string  `gorm:"serializer:json;type:text"`
	MaxCalories *float64  `gorm:""`
	Goal        string    `gorm:"size:32"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (PreferencesRecord) TableName() string {
	return "preferences"
}

// FromPreferences converts domain preferences into a record.
func FromPreferences(partition string, p product.UserPreferences) *PreferencesRecord {
	c := p.Clone()
	return &PreferencesRecord{
		Partition:   partition,
		Avoided:     c.AvoidedIngredients,
		Custom:      c.CustomAvoidedIngredients,
		MaxCalories: c.MaxCalories,
		Goal:        string(c.Goal),
	}
}

// ToPreferences converts the record back into domain preferences.
func (r *PreferencesRecord) ToPreferences() product.UserPreferences {
	p := product.UserPreferences{
		AvoidedIngredients:       slices.Clone(r.Avoided),
		CustomAvoidedIngredients: slices.Clone(r.Custom),
		Goal:                     product.Goal(r.Goal),
	}
	if r.MaxCalories != nil {
		v := *r.MaxCalories
		p.MaxCalories = &v
	}
	return p
}
