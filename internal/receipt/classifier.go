// Package receipt turns raw OCR text from a grocery receipt into line items.
// The rules target German supermarket receipts (REWE layout) but are kept as
// an ordered list of independent recognizers so new formats can be added
// without touching existing ones.
package receipt

import "regexp"

// noiseRule recognizes one family of non-item lines.
type noiseRule struct {
	name    string
	pattern *regexp.Regexp
}

// Matches reports whether the trimmed line belongs to this rule's family.
func (r noiseRule) Matches(line string) bool {
	return r.pattern.MatchString(line)
}

// noiseRules is checked in order; the first hit classifies the line as noise.
// Ordering groups the cheap anchored checks before the substring scans.
var noiseRules = []noiseRule{
	{"merchant header", regexp.MustCompile(`(?i)^(REWE|Markt|Kurfürstendamm|Berlin|UID)`)},
	{"total line", regexp.MustCompile(`(?i)^(SUMME|Geg\.|Betrag EUR|Steuer)`)},
	{"payment terminal", regexp.MustCompile(`(?i)^(EC-Cash|Beleg-Nr|Trace-Nr|Kartenzahlung|Contactless|girocard|Nr\.|Terminal-ID|Pos-Info|AS-Zeit|Zahlung erfolgt|TSE-|Seriennummer|Kasse:|Bed\.:)`)},
	{"date line", regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)},
	{"time line", regexp.MustCompile(`^\d{2}:\d{2}$`)},
	{"timestamp prefix", regexp.MustCompile(`(?i)^(Datum:|Uhrzeit:)`)},
	{"separator", regexp.MustCompile(`^(\*+|=+|-+)$`)},
	{"loyalty marketing", regexp.MustCompile(`(?i)(Entdecke und aktiviere|Bonus-Vorteile|Einfach beim|Sammle noch mehr|Coupons|Keine Rabatte|gekennzeichnete Produkte|Vielen Dank)`)},
}

// IsNoise reports whether a trimmed, non-empty line is receipt noise: headers,
// totals, payment metadata, marketing text or separators. Any matching rule
// wins; unknown lines are not noise and go on to item parsing.
func IsNoise(line string) bool {
	for _, rule := range noiseRules {
		if rule.Matches(line) {
			return true
		}
	}
	return false
}
