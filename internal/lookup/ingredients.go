package lookup

import (
	"regexp"
	"strings"
)

var (
	markupRe       = regexp.MustCompile(`<[^>]*>`)
	ingredientsTag = regexp.MustCompile(`(?i)^\s*ingredients?\s*[:\-]\s*`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// ParseIngredients splits a provider ingredient string into a clean list.
// Commas and semicolons inside parentheses or brackets do not split. Markup,
// allergen underscores, a leading "Ingredients:" label and trailing
// punctuation are removed, and duplicates are dropped case-insensitively
// keeping the first spelling.
func ParseIngredients(text string) []string {
	text = markupRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "_", "")
	text = ingredientsTag.ReplaceAllString(text, "")

	out := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(token string) {
		token = cleanIngredient(token)
		if token == "" {
			return
		}
		key := strings.ToLower(token)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, token)
	}

	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',', ';', '\n':
			if depth == 0 {
				add(text[start:i])
				start = i + 1
			}
		}
	}
	add(text[start:])

	return out
}

func cleanIngredient(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".:;,*!·• ")
	s = strings.TrimLeft(s, "-*•· ")
	s = balanceParens(s)
	return strings.TrimSpace(s)
}

// balanceParens drops a dangling closing parenthesis left behind when a
// provider truncates a nested list.
func balanceParens(s string) string {
	open := strings.Count(s, "(")
	closed := strings.Count(s, ")")
	for closed > open && strings.HasSuffix(s, ")") {
		s = strings.TrimSuffix(s, ")")
		closed--
	}
	return s
}
