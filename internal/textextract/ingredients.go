package textextract

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	sectionStartRe   = regexp.MustCompile(`(?i)\bingredients?\b\s*[:\-]?`)
	containsStartRe  = regexp.MustCompile(`(?i)^contains\b\s*[:\-]?`)
	sectionEndRe     = regexp.MustCompile(`(?i)nutrition|allergen|may contain`)
	tokenSplitRe     = regexp.MustCompile(`[,;()\[\]]`)
	trailingPctRe    = regexp.MustCompile(`\s*\d+(?:[.,]\d+)?\s*%$`)
	leadingLabelRe   = regexp.MustCompile(`(?i)^(?:.*less of|contains|ingredients?)\s*:?\s*`)
	capitalPhraseRe  = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \-][A-Z][a-z]+)+\b`)
	healthyPrefixRe  = regexp.MustCompile(`(?i)\b(?:whole|organic|natural|raw|fresh|pure|wild|free[- ]range|unsweetened|sprouted|rolled)\s+[a-z]{3,}\b`)
	labelKeywordRe   = regexp.MustCompile(`(?i)\b(?:ingredients?|nutrition|facts|serving|servings|calories|allergens?|contains|net\s*wt|weight|per\s+100|daily\s+value|best\s+before|use\s+by|store|keep)\b`)
)

const (
	tokenTrimCutset  = " \t.:*•·-_/\\\"'"
	minTokenRunes    = 2
	maxTokenRunes    = 60
	maxFallbackWords = 4
)

// EnhanceIngredientDetection extracts the ingredient list from label text.
// A line containing "ingredients" or starting with "contains" opens the
// section, and the remainder of that line belongs to it. A line mentioning
// nutrition, allergens or "may contain", or starting with a digit, closes it.
// Without any section start the whole text is scanned heuristically.
// The result is deduplicated case-insensitively and never nil.
func EnhanceIngredientDetection(text string) []string {
	lines := splitLines(text)

	collector := newTokenCollector()
	foundSection := false
	inSection := false

	for _, line := range lines {
		if !inSection {
			loc := sectionStartRe.FindStringIndex(line)
			if loc == nil {
				loc = containsStartRe.FindStringIndex(line)
			}
			if loc == nil {
				continue
			}
			foundSection = true
			inSection = true
			collector.addLine(line[loc[1]:])
			continue
		}

		if isSectionEnd(line) {
			inSection = false
			continue
		}
		collector.addLine(line)
	}

	if !foundSection {
		return heuristicIngredients(text)
	}
	return collector.tokens
}

func isSectionEnd(line string) bool {
	if sectionEndRe.MatchString(line) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsDigit(r)
}

type tokenCollector struct {
	tokens []string
	seen   map[string]struct{}
}

func newTokenCollector() *tokenCollector {
	return &tokenCollector{tokens: make([]string, 0), seen: make(map[string]struct{})}
}

func (c *tokenCollector) addLine(line string) {
	for _, raw := range tokenSplitRe.Split(line, -1) {
		c.add(cleanToken(raw))
	}
}

func (c *tokenCollector) add(token string) {
	if token == "" {
		return
	}
	key := strings.ToLower(token)
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.tokens = append(c.tokens, token)
}

// cleanToken trims punctuation, percentages and leading labels from an
// ingredient token. It returns "" for tokens that are not plausible ingredients.
func cleanToken(raw string) string {
	token := strings.Trim(strings.TrimSpace(raw), tokenTrimCutset)
	token = leadingLabelRe.ReplaceAllString(token, "")
	token = trailingPctRe.ReplaceAllString(token, "")
	token = strings.Trim(token, tokenTrimCutset)
	token = strings.Join(strings.Fields(token), " ")

	n := utf8.RuneCountInString(token)
	if n < minTokenRunes || n > maxTokenRunes {
		return ""
	}
	if !strings.ContainsFunc(token, unicode.IsLetter) {
		return ""
	}
	return token
}

type phraseMatch struct {
	start, end int
	text       string
}

// heuristicIngredients picks capitalized multi-word phrases and phrases
// introduced by wholesome-food prefixes, in order of appearance.
func heuristicIngredients(text string) []string {
	var matches []phraseMatch
	for _, re := range []*regexp.Regexp{capitalPhraseRe, healthyPrefixRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			phrase := text[loc[0]:loc[1]]
			if labelKeywordRe.MatchString(phrase) || len(strings.Fields(phrase)) > maxFallbackWords {
				continue
			}
			matches = append(matches, phraseMatch{start: loc[0], end: loc[1], text: phrase})
		}
	}

	slices.SortStableFunc(matches, func(a, b phraseMatch) int { return a.start - b.start })

	collector := newTokenCollector()
	lastEnd := -1
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		lastEnd = m.end
		collector.add(cleanToken(m.text))
	}
	return collector.tokens
}
