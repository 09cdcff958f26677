package receipt

import (
	"fmt"
	"strings"

	"haushalt/internal/core"
)

// Parse turns raw OCR text into ordered line items. Lines are trimmed, empty
// lines dropped, noise lines skipped, and the rest run through the item
// patterns; lines matching neither pattern are silently dropped. Items get
// sequential ids ("item-1", "item-2", ...) scoped to this parse, in order of
// appearance. Empty input yields an empty result, never an error.
func Parse(rawText string) []core.LineItem {
	items := []core.LineItem{}
	nextID := 1

	for _, raw := range strings.Split(rawText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || IsNoise(line) {
			continue
		}

		description, cents, ok := ParseItemLine(line)
		if !ok {
			continue
		}

		items = append(items, core.LineItem{
			ID:          fmt.Sprintf("item-%d", nextID),
			Description: description,
			Price:       core.Money{Cents: cents},
		})
		nextID++
	}

	return items
}
