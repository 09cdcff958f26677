package receipt

import (
	"strings"
	"testing"
)

const sampleReceipt = `REWE Markt GmbH
Kurfürstendamm 12
Berlin 10719
UID Nr.: DE812706034

KOERNER BALANCE EUR 2,49 B
BIO EIER 10ER 3,29 B
MILCH 1,5% 1,19 A
PFAND 0,25 EURO 0,25 A *
--------
SUMME EUR 7,22
Geg. girocard EUR 7,22
Datum: 21.07.2025
Uhrzeit: 14:32:10
Beleg-Nr. 1234
Terminal-ID 65221234
Vielen Dank für Ihren Einkauf`

func TestParse(t *testing.T) {
	items := Parse(sampleReceipt)

	want := []struct {
		id    string
		desc  string
		cents int64
	}{
		{"item-1", "KOERNER BALANCE", 249},
		{"item-2", "BIO EIER 10ER", 329},
		{"item-3", "MILCH 1,5%", 119},
		{"item-4", "PFAND", 25},
	}

	if len(items) != len(want) {
		t.Fatalf("Parse() returned %d items, want %d: %+v", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].ID != w.id {
			t.Errorf("item %d id = %q, want %q", i, items[i].ID, w.id)
		}
		if items[i].Description != w.desc {
			t.Errorf("item %d description = %q, want %q", i, items[i].Description, w.desc)
		}
		if items[i].Price.Cents != w.cents {
			t.Errorf("item %d price = %d, want %d", i, items[i].Price.Cents, w.cents)
		}
		if items[i].Category != "" {
			t.Errorf("item %d has category %q before allocation", i, items[i].Category)
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n\n", "   \n \t \n"} {
		if items := Parse(in); len(items) != 0 {
			t.Errorf("Parse(%q) = %d items, want 0", in, len(items))
		}
	}
}

func TestParseAllNoiseReceipt(t *testing.T) {
	text := strings.Join([]string{
		"REWE Markt GmbH",
		"SUMME EUR 0,00",
		"Vielen Dank für Ihren Einkauf",
	}, "\n")
	if items := Parse(text); len(items) != 0 {
		t.Errorf("all-noise receipt produced %d items", len(items))
	}
}

// Every line a classifier rule matches must be invisible to the parser,
// even when it would also match an item pattern.
func TestNoiseNeverBecomesItems(t *testing.T) {
	noisy := []string{
		"SUMME EUR 23,45",
		"Betrag EUR 23,45",
		"Geg. girocard EUR 23,45",
	}
	for _, line := range noisy {
		if !IsNoise(line) {
			t.Fatalf("expected %q to be noise", line)
		}
		if items := Parse(line); len(items) != 0 {
			t.Errorf("noise line %q produced items: %+v", line, items)
		}
	}
}
