// Package normalize provides canonicalization for free-text job titles and
// employee-count ranges ahead of prefiltering and prompt construction.
package normalize

import (
	"regexp"
	"strings"
)

// acronymExpansions maps common title acronyms to their canonical expansions.
// Matching is whole-word against the lower-cased title.
var acronymExpansions = map[string]string{
	"vp":     "vice president",
	"svp":    "senior vice president",
	"evp":    "executive vice president",
	"cro":    "chief revenue officer",
	"coo":    "chief operating officer",
	"cfo":    "chief financial officer",
	"cto":    "chief technology officer",
	"ceo":    "chief executive officer",
	"cmo":    "chief marketing officer",
	"sdr":    "sales development representative",
	"bdr":    "business development representative",
	"ae":     "account executive",
	"revops": "revenue operations",
	"gtm":    "go to market",
	"md":     "managing director",
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	wordRe          = regexp.MustCompile(`[a-z0-9&/+.-]+`)
)

// Title canonicalizes a free-text job title: lower-cases, strips
// parenthetical/pipe/@-suffix noise, expands the fixed acronym table and
// collapses whitespace. Pure and total; empty input yields the empty string.
func Title(raw string) string {
	title := strings.ToLower(strings.TrimSpace(raw))
	if title == "" {
		return ""
	}

	title = parentheticalRe.ReplaceAllString(title, " ")

	// "VP Sales | Acme Corp" and "Head of Growth @ Acme" carry employer or
	// location tails after the separator; the title is always the first segment.
	for _, sep := range []string{"|", "@", " - ", " – ", ","} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}

	title = wordRe.ReplaceAllStringFunc(title, func(word string) string {
		if expanded, ok := acronymExpansions[word]; ok {
			return expanded
		}
		return word
	})

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(title, " "))
}
