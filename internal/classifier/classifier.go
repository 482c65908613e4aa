// Package classifier evaluates ingredient lists against user preferences and
// tags them with taxonomy categories. All functions are pure and never fail.
package classifier

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tphakala/foodscan/internal/product"
)

// Evaluation is the outcome of Evaluate. Verdict is good iff Flagged is empty.
type Evaluation struct {
	Verdict product.Verdict             `json:"verdict"`
	Flagged []product.FlaggedIngredient `json:"flaggedIngredients"`
}

type avoidTerm struct {
	display string
	folded  string
	custom  bool
}

// Evaluate flags every ingredient containing an avoided term, case-insensitively.
// Predefined terms are checked before custom ones and the first matching term
// supplies the reason. A calorie entry is appended when calories exceed the
// preference ceiling.
func Evaluate(ingredients []string, calories *float64, prefs product.UserPreferences) Evaluation {
	folder := cases.Fold()

	terms := make([]avoidTerm, 0, len(prefs.AvoidedIngredients)+len(prefs.CustomAvoidedIngredients))
	appendTerms := func(list []string, custom bool) {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			terms = append(terms, avoidTerm{display: t, folded: folder.String(t), custom: custom})
		}
	}
	appendTerms(prefs.AvoidedIngredients, false)
	appendTerms(prefs.CustomAvoidedIngredients, true)

	flagged := make([]product.FlaggedIngredient, 0)
	seen := make(map[string]struct{}, len(ingredients))

	for _, ingredient := range ingredients {
		key := folder.String(strings.TrimSpace(ingredient))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		for _, term := range terms {
			if strings.Contains(key, term.folded) {
				seen[key] = struct{}{}
				flagged = append(flagged, product.FlaggedIngredient{
					Ingredient: ingredient,
					Reason:     avoidReason(term),
				})
				break
			}
		}
	}

	if calories != nil && prefs.MaxCalories != nil && *calories > *prefs.MaxCalories {
		flagged = append(flagged, CalorieFlag(*calories, *prefs.MaxCalories))
	}

	return Evaluation{Verdict: VerdictFor(flagged), Flagged: flagged}
}

// VerdictFor derives the verdict from a flag list.
func VerdictFor(flagged []product.FlaggedIngredient) product.Verdict {
	if len(flagged) == 0 {
		return product.VerdictGood
	}
	return product.VerdictBad
}

// CalorieFlag builds the synthetic entry for a calorie limit violation.
func CalorieFlag(calories, limit float64) product.FlaggedIngredient {
	value := formatNumber(calories)
	return product.FlaggedIngredient{
		Ingredient: "Calories (" + value + ")",
		Reason:     value + " calories exceeds your limit of " + formatNumber(limit),
	}
}

func avoidReason(term avoidTerm) string {
	if term.custom {
		return "Contains \"" + term.display + "\", which is on your custom avoid list"
	}
	return "Contains \"" + term.display + "\", which is on your avoid list"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
