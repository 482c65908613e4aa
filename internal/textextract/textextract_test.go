package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/foodscan/internal/product"
)

func TestPreprocessText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"digits inside words", "c0c0a and M1LK", "cocoa and MILK"},
		{"standalone numbers untouched", "100% juice, 5 g", "100% juice, 5 g"},
		{"ingredients keyword", "lngredients: oats", "Ingredients: oats"},
		{"upper case keyword", "INGREDlENTS:", "Ingredients:"},
		{"leading digit keyword", "1NGREDIENTS: Oats", "Ingredients: Oats"},
		{"nutrition keyword", "Nutritlon Facts", "Nutrition Facts"},
		{"camel case split", "OrganicRolledOats", "Organic Rolled Oats"},
		{"short prefix kept", "McDonald", "McDonald"},
		{"whitespace collapsed", "  Granola   Bar \r\n\r\n  Acme  ", "Granola Bar\nAcme"},
		{"ligature folded", "ﬁber", "fiber"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreprocessText(tt.raw))
		})
	}
}

func TestEnhanceIngredientDetection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "marker line with remainder",
			text: "Granola Crunch\nACME FOODS\nIngredients: Rolled oats, honey, almonds (roasted), sea salt.\nNutrition Facts\nCalories 120",
			want: []string{"Rolled oats", "honey", "almonds", "roasted", "sea salt"},
		},
		{
			name: "section ends at digit line",
			text: "INGREDIENTS:\nWater, Sugar; Citric Acid\nNatural Flavors, sugar\n250 ml\nApple",
			want: []string{"Water", "Sugar", "Citric Acid", "Natural Flavors"},
		},
		{
			name: "contains marker",
			text: "Contains: milk, soy",
			want: []string{"milk", "soy"},
		},
		{
			name: "percentages and sub labels",
			text: "Ingredients: sugar 45%, cocoa butter, contains 2% or less of: salt",
			want: []string{"sugar", "cocoa butter", "salt"},
		},
		{
			name: "allergen line closes section",
			text: "Ingredients: wheat flour\nAllergens: wheat\nMay contain nuts",
			want: []string{"wheat flour"},
		},
		{
			name: "marker without tokens",
			text: "Ingredients:\nNutrition Facts",
			want: []string{},
		},
		{
			name: "heuristic fallback",
			text: "Made from Whole Grain Oats and organic honey\nBest Before 2025",
			want: []string{"Whole Grain Oats", "organic honey"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnhanceIngredientDetection(tt.text))
		})
	}
}

func TestEnhanceIngredientDetectionNeverNil(t *testing.T) {
	got := EnhanceIngredientDetection("random text with no markers")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.NotNil(t, EnhanceIngredientDetection(""))
}

func TestDetectProductName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", product.UnknownProduct},
		{"whitespace only", " \n\t\n", product.UnknownProduct},
		{"skips keyword lines", "INGREDIENTS: oats\nGranola Crunch\nACME", "Granola Crunch"},
		{"skips digit start", "2 servings\n50g Protein Bar\nProtein Bar", "Protein Bar"},
		{"skips too long", "This Is An Extraordinarily Long Marketing Slogan Line For Testing\nOat Bar", "Oat Bar"},
		{"falls back to first line", "123 calories\nBIG", "123 calories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProductName(tt.text))
		})
	}
}

func TestDetectBrand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", product.UnknownBrand},
		{"legal entity", "Granola Crunch\nAcme Foods Inc.\nIngredients: oats", "Acme Foods Inc."},
		{"trademark symbol", "Nutty Spread\nNutella®", "Nutella"},
		{"short all caps", "Granola Crunch\nACME\nIngredients: oats", "ACME"},
		{"second line after name", "Granola Crunch\nAcme Foods\nIngredients: oats", "Acme Foods"},
		{"keyword caps ignored", "INGREDIENTS: OATS", product.UnknownBrand},
		{"single name line", "Granola Crunch", product.UnknownBrand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBrand(tt.text))
		})
	}
}

func TestExtract(t *testing.T) {
	raw := "Granola Crunch\nACME FOODS\nlngredients: r0lled oats, h0ney\nNutritlon Facts"

	res := Extract(raw)

	assert.Equal(t, "Granola Crunch", res.Name)
	assert.Equal(t, "ACME FOODS", res.Brand)
	assert.Equal(t, []string{"rolled oats", "honey"}, res.Ingredients)
	assert.Contains(t, res.Text, "Ingredients: rolled oats")
}
