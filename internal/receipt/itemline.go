package receipt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"haushalt/internal/core"
)

var (
	// depositPattern covers deposit/return lines carrying a per-unit price and
	// a line total, e.g. "PFAND 0,25 EURO 0,25 A *". The second amount is the
	// line total and is the one that counts.
	depositPattern = regexp.MustCompile(`(?i)^(.+?)\s+(\d+[,.]\d{2})\s+(EUR|EURO)\s+(\d+[,.]\d{2})\s*[AB]?\s*\*?$`)

	// itemPattern covers the common single-amount line,
	// e.g. "KOERNER BALANCE EUR 2,49 B".
	itemPattern = regexp.MustCompile(`(?i)^(.+?)\s+(EUR|€)?\s*(\d+[,.]\d{2})\s*[AB]?\s*\*?$`)

	leadingCurrency  = regexp.MustCompile(`(?i)^(EUR|€)\s*`)
	trailingCurrency = regexp.MustCompile(`(?i)\s*(EUR|€)$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// ParseItemLine extracts a normalized description and a price in cents from a
// candidate receipt line. The deposit pattern is tried before the generic one
// because it is strictly more specific; a generic-first order would swallow
// the unit price into the description.
//
// ok is false when no pattern matches or the candidate fails the sanity
// checks (non-positive price, description of two characters or less). Such
// lines are parser noise, not errors.
func ParseItemLine(line string) (description string, cents int64, ok bool) {
	var rawDesc, rawPrice string

	if m := depositPattern.FindStringSubmatch(line); m != nil {
		rawDesc, rawPrice = m[1], m[4]
	} else if m := itemPattern.FindStringSubmatch(line); m != nil {
		rawDesc, rawPrice = m[1], m[3]
	} else {
		return "", 0, false
	}

	description = NormalizeDescription(rawDesc)
	cents, err := core.ParseDecimalToCents(rawPrice)
	if err != nil {
		return "", 0, false
	}
	if utf8.RuneCountInString(description) <= 2 {
		return "", 0, false
	}
	return description, cents, true
}

// NormalizeDescription strips stray currency tokens, collapses whitespace
// runs and upper-cases the text. Receipts are inconsistent in case;
// upper-casing gives stable sorting and deduplication downstream.
func NormalizeDescription(s string) string {
	s = leadingCurrency.ReplaceAllString(s, "")
	s = trailingCurrency.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}
