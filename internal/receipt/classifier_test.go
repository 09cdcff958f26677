package receipt

import "testing"

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line  string
		noise bool
	}{
		// merchant header and address
		{"REWE Markt GmbH", true},
		{"Markt 0440", true},
		{"Kurfürstendamm 12", true},
		{"Berlin 10719", true},
		{"UID Nr.: DE812706034", true},
		// totals and tax
		{"SUMME EUR 23,45", true},
		{"Geg. girocard EUR 23,45", true},
		{"Betrag EUR 23,45", true},
		{"Steuer % Netto Brutto", true},
		// payment terminal metadata
		{"EC-Cash", true},
		{"Beleg-Nr. 1234", true},
		{"Trace-Nr. 567890", true},
		{"Kartenzahlung Kontaktlos", true},
		{"Contactless girocard", true},
		{"girocard", true},
		{"Terminal-ID 65221234", true},
		{"Pos-Info 00 075 00", true},
		{"AS-Zeit 14:32:10", true},
		{"Zahlung erfolgt", true},
		{"TSE-Signatur abc", true},
		{"Seriennummer 123", true},
		{"Kasse: 2 Bed.: 1234", true},
		{"Bed.: 414141", true},
		// dates and times
		{"21.07.2025", true},
		{"14:32", true},
		{"Datum: 21.07.2025", true},
		{"Uhrzeit: 14:32:10", true},
		// separators
		{"********", true},
		{"========", true},
		{"--------", true},
		// loyalty marketing
		{"Entdecke und aktiviere deine", true},
		{"Bonus-Vorteile in der App", true},
		{"Sammle noch mehr Punkte", true},
		{"Coupons einlösen", true},
		{"Vielen Dank für Ihren Einkauf", true},
		// item lines must pass through
		{"KOERNER BALANCE EUR 2,49 B", false},
		{"PFAND 0,25 EURO 0,25 A *", false},
		{"BIO EIER 10ER 3,29 B", false},
	}

	for _, tt := range tests {
		if got := IsNoise(tt.line); got != tt.noise {
			t.Errorf("IsNoise(%q) = %v, want %v", tt.line, got, tt.noise)
		}
	}
}

func TestNoiseRuleNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, rule := range noiseRules {
		if seen[rule.name] {
			t.Errorf("duplicate rule name %q", rule.name)
		}
		seen[rule.name] = true
	}
}
