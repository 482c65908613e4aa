package textextract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tphakala/foodscan/internal/product"
)

const (
	minNameRunes     = 2
	maxNameRunes     = 50
	maxAllCapsRunes  = 20
	trademarkSymbols = "™®©"
)

var legalEntityRe = regexp.MustCompile(`(?i)\b(?:inc|llc|ltd|corp|gmbh)\b\.?|\bco\.`)

// DetectProductName returns the first line that looks like a product name:
// not a label keyword line, 2 to 50 characters long, not starting with a
// digit and mixing upper and lower case. It falls back to the first line and
// then to "Unknown Product".
func DetectProductName(text string) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return product.UnknownProduct
	}

	for _, line := range lines {
		if looksLikeName(line) {
			return line
		}
	}
	return lines[0]
}

func looksLikeName(line string) bool {
	if labelKeywordRe.MatchString(line) {
		return false
	}
	n := utf8.RuneCountInString(line)
	if n < minNameRunes || n > maxNameRunes {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	if unicode.IsDigit(first) {
		return false
	}
	return strings.ContainsFunc(line, unicode.IsUpper) && strings.ContainsFunc(line, unicode.IsLower)
}

// DetectBrand looks for a line carrying a legal-entity or trademark marker,
// then for a short all-caps line. If neither exists and the first line looked
// like a product name, the second line is used. The final fallback is
// "Unknown Brand".
func DetectBrand(text string) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return product.UnknownBrand
	}

	for _, line := range lines {
		if strings.ContainsAny(line, trademarkSymbols) || legalEntityRe.MatchString(line) {
			if brand := cleanBrand(line); brand != "" {
				return brand
			}
		}
	}

	for _, line := range lines {
		if isShortAllCaps(line) && !labelKeywordRe.MatchString(line) {
			return line
		}
	}

	if len(lines) > 1 && looksLikeName(lines[0]) {
		return lines[1]
	}

	return product.UnknownBrand
}

func cleanBrand(line string) string {
	brand := strings.Map(func(r rune) rune {
		if strings.ContainsRune(trademarkSymbols, r) {
			return -1
		}
		return r
	}, line)
	return strings.Join(strings.Fields(brand), " ")
}

func isShortAllCaps(line string) bool {
	if utf8.RuneCountInString(line) >= maxAllCapsRunes {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// Result is the structured guess extracted from OCR text.
type Result struct {
	Name        string
	Brand       string
	Ingredients []string
	// Text is the preprocessed text the guess was derived from.
	Text string
}

// Extract runs preprocessing followed by every detector.
func Extract(raw string) Result {
	text := PreprocessText(raw)
	return Result{
		Name:        DetectProductName(text),
		Brand:       DetectBrand(text),
		Ingredients: EnhanceIngredientDetection(text),
		Text:        text,
	}
}
