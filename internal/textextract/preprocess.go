// Package textextract turns noisy OCR output into a best-effort guess of a
// product's name, brand and ingredient list. No function in this package
// fails: every detector has a deterministic fallback value.
package textextract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// keywordFixes repairs label keywords OCR engines commonly misread.
var keywordFixes = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\b[l1|i]ngred[il1|]ents?\b`), "Ingredients"},
	{regexp.MustCompile(`(?i)\bnutr[il1|]t[il1|][o0]n\b`), "Nutrition"},
	{regexp.MustCompile(`(?i)\ba[l1|][l1|]ergens?\b`), "Allergens"},
	{regexp.MustCompile(`(?i)\bc[o0]nta[il1|]ns\b`), "Contains"},
}

// wordDigitFixes maps characters misread inside alphabetic words.
// They are only replaced when both neighbours are letters.
var wordDigitFixes = map[rune][2]rune{
	'0': {'o', 'O'},
	'1': {'l', 'I'},
	'5': {'s', 'S'},
	'|': {'l', 'I'},
}

// PreprocessText normalises raw OCR text: Unicode compatibility forms are
// folded, digits misread inside words are corrected, label keywords are
// repaired, glued camelCase words are split and whitespace is collapsed.
// Blank lines are dropped.
func PreprocessText(raw string) string {
	text := norm.NFKC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		line = fixWordDigits(line)
		for _, fix := range keywordFixes {
			line = fix.re.ReplaceAllString(line, fix.replacement)
		}
		line = splitCamelCase(line)
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

func fixWordDigits(line string) string {
	runes := []rune(line)
	changed := false
	for i := 1; i < len(runes)-1; i++ {
		fix, ok := wordDigitFixes[runes[i]]
		if !ok {
			continue
		}
		prev, next := runes[i-1], runes[i+1]
		if !unicode.IsLetter(prev) || !unicode.IsLetter(next) {
			continue
		}
		if unicode.IsUpper(prev) && unicode.IsUpper(next) {
			runes[i] = fix[1]
		} else {
			runes[i] = fix[0]
		}
		changed = true
	}
	if !changed {
		return line
	}
	return string(runes)
}

// splitCamelCase inserts a space at a lower to upper transition when the two
// preceding runes are lowercase, so "OrganicOats" splits but "McDonald" does not.
func splitCamelCase(line string) string {
	runes := []rune(line)
	var b strings.Builder
	b.Grow(len(line) + 4)
	for i, r := range runes {
		if i >= 2 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) && unicode.IsLower(runes[i-2]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
