package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsDeep(t *testing.T) {
	p := &Product{
		ID:                 "a",
		Ingredients:        []string{"oats"},
		Categories:         []string{"natural"},
		FlaggedIngredients: []FlaggedIngredient{},
		Calories:           Float(120),
	}

	c := p.Clone()
	c.Ingredients[0] = "sugar"
	*c.Calories = 999

	assert.Equal(t, "oats", p.Ingredients[0])
	assert.InDelta(t, 120, *p.Calories, 0)
	assert.Nil(t, (*Product)(nil).Clone())
}

func TestProductValid(t *testing.T) {
	tests := []struct {
		name string
		p    *Product
		want bool
	}{
		{"good without flags", &Product{Verdict: VerdictGood, Ingredients: []string{"x"}, Categories: []string{"natural"}}, true},
		{"bad with flags", &Product{Verdict: VerdictBad, Ingredients: []string{"x"}, Categories: []string{"natural"},
			FlaggedIngredients: []FlaggedIngredient{{Ingredient: "x", Reason: "r"}}}, true},
		{"good with flags", &Product{Verdict: VerdictGood, Ingredients: []string{"x"}, Categories: []string{"natural"},
			FlaggedIngredients: []FlaggedIngredient{{Ingredient: "x"}}}, false},
		{"bad without flags", &Product{Verdict: VerdictBad, Ingredients: []string{"x"}, Categories: []string{"natural"}}, false},
		{"no ingredients", &Product{Verdict: VerdictGood, Categories: []string{"natural"}}, false},
		{"no categories", &Product{Verdict: VerdictGood, Ingredients: []string{"x"}}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Valid())
		})
	}
}

func TestFilterMatches(t *testing.T) {
	p := &Product{ID: "1", Barcode: "0001", Avoided: true}

	assert.True(t, Filter{}.Matches(p))
	assert.True(t, Filter{Barcode: "0001", Avoided: Bool(true)}.Matches(p))
	assert.False(t, Filter{Avoided: Bool(false)}.Matches(p))
	assert.False(t, Filter{ID: "2"}.Matches(p))
}

func TestPreferencesCloneIsDeep(t *testing.T) {
	prefs := UserPreferences{AvoidedIngredients: []string{"honey"}, MaxCalories: Float(200)}
	c := prefs.Clone()
	c.AvoidedIngredients[0] = "salt"
	*c.MaxCalories = 1

	assert.Equal(t, "honey", prefs.AvoidedIngredients[0])
	assert.InDelta(t, 200, *prefs.MaxCalories, 0)
}

func TestAvoidTermsOrder(t *testing.T) {
	prefs := UserPreferences{AvoidedIngredients: []string{"honey"}, CustomAvoidedIngredients: []string{"palm oil"}}
	assert.Equal(t, []string{"honey", "palm oil"}, prefs.AvoidTerms())
	assert.Empty(t, UserPreferences{}.AvoidTerms())
}
