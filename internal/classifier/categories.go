package classifier

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tphakala/foodscan/internal/product"
)

// Category keys in result order.
const (
	CategoryArtificialSweeteners = "artificialSweeteners"
	CategoryArtificialColors     = "artificialColors"
	CategoryFatsOils             = "fatsOils"
	CategoryPreservatives        = "preservatives"
	CategorySugarsSyrups         = "sugarsSyrups"
	CategoryAdditives            = "additives"
	CategoryAllergens            = "allergens"
)

type category struct {
	key   string
	terms []string
}

var taxonomy = []category{
	{CategoryArtificialSweeteners, []string{
		"aspartame", "sucralose", "saccharin", "acesulfame", "neotame", "advantame", "cyclamate",
	}},
	{CategoryArtificialColors, []string{
		"red 40", "red 3", "yellow 5", "yellow 6", "blue 1", "blue 2", "green 3",
		"allura red", "tartrazine", "sunset yellow", "brilliant blue", "caramel color",
		"e102", "e110", "e129", "e133", "e150",
	}},
	{CategoryFatsOils, []string{
		"palm oil", "palm kernel", "hydrogenated", "shortening", "canola oil", "soybean oil",
		"vegetable oil", "cottonseed oil", "sunflower oil", "margarine", "lard",
	}},
	{CategoryPreservatives, []string{
		"sodium benzoate", "potassium sorbate", "sorbic acid", "bha", "bht", "tbhq",
		"sodium nitrite", "sodium nitrate", "sulfite", "sulphite", "calcium propionate",
	}},
	{CategorySugarsSyrups, []string{
		"sugar", "corn syrup", "glucose syrup", "rice syrup", "dextrose", "fructose",
		"maltodextrin", "sucrose", "honey", "molasses", "agave", "cane juice",
	}},
	{CategoryAdditives, []string{
		"monosodium glutamate", "msg", "carrageenan", "xanthan gum", "guar gum", "polysorbate",
		"lecithin", "artificial flavor", "modified starch", "sodium phosphate", "emulsifier",
	}},
	{CategoryAllergens, []string{
		"milk", "egg", "peanut", "tree nut", "almond", "cashew", "walnut", "hazelnut",
		"soy", "wheat", "gluten", "fish", "shellfish", "shrimp", "sesame",
	}},
}

// Categories returns the taxonomy keys in result order.
func Categories() []string {
	keys := make([]string, len(taxonomy))
	for i, c := range taxonomy {
		keys[i] = c.key
	}
	return keys
}

// Categorize tags the ingredient list with every taxonomy category that has
// at least one matching term. The result is never empty: "natural" is
// returned when nothing matched.
func Categorize(ingredients []string) []string {
	folder := cases.Fold()

	folded := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if s := strings.TrimSpace(ingredient); s != "" {
			folded = append(folded, folder.String(s))
		}
	}

	result := make([]string, 0, 2)
	for _, c := range taxonomy {
		if matchesAny(folded, c.terms) {
			result = append(result, c.key)
		}
	}

	if len(result) == 0 {
		return []string{product.CategoryNatural}
	}
	return result
}

func matchesAny(ingredients, terms []string) bool {
	for _, ingredient := range ingredients {
		for _, term := range terms {
			if strings.Contains(ingredient, term) {
				return true
			}
		}
	}
	return false
}
