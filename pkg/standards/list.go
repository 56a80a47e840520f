// Package standards reads calibration standards lists from spreadsheets.
package standards

import "github.com/ChrisMcGann/RawKey/pkg/core"

// Item is one calibrant: an ion formula and its expected retention time.
type Item struct {
	IonFormula           string
	RetentionTimeSeconds float64
}

// IonMZ returns the m/z of the item's ion formula.
func (i Item) IonMZ() (float64, error) {
	return core.IonMZ(i.IonFormula)
}

// RoundedIonMZ returns the ion m/z rounded to decimals places.
func (i Item) RoundedIonMZ(decimals int) (float64, error) {
	mz, err := i.IonMZ()
	if err != nil {
		return 0, err
	}
	return core.RoundFloat(mz, decimals), nil
}

// List is an ordered sequence of standards. Duplicates are kept.
type List struct {
	items []Item
}

// NewList creates a list holding a copy of items.
func NewList(items []Item) *List {
	l := &List{items: make([]Item, len(items))}
	copy(l.items, items)
	return l
}

// Items returns a copy of the items in spreadsheet order.
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Between returns the items whose retention time lies in [minSec, maxSec].
func (l *List) Between(minSec, maxSec float64) []Item {
	var out []Item
	for _, it := range l.items {
		if it.RetentionTimeSeconds >= minSec && it.RetentionTimeSeconds <= maxSec {
			out = append(out, it)
		}
	}
	return out
}
