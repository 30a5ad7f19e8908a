/*
lineitems.go - Ordered collection of priced, quantified entries

PURPOSE:
  The LineItemLedger holds the items of one open transaction. It is the
  only place quantities change, and it guarantees that every entry it
  exposes has quantity >= 1.

INVARIANTS:
  1. QUANTITY: Every entry has Quantity >= 1. Reaching zero removes it.
  2. IDENTITY: At most one entry per ItemID. Re-adding merges.
  3. ORDER: Entries keep the order in which they were first added.
  4. DERIVED: Subtotal is always recomputed, never stored.

EXAMPLE FLOW:
  AddOrIncrement(tea)      -> [tea x1]
  AddOrIncrement(coffee)   -> [tea x1, coffee x1]
  AddOrIncrement(tea)      -> [tea x2, coffee x1]
  AdjustQuantity(tea, -2)  -> [coffee x1]

SEE ALSO:
  - tax.go: Consumes Items() to compute totals
  - session.go: Recomputes totals after each ledger edit
*/
package generic

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LINE ITEM LEDGER
// =============================================================================

// LineItemLedger is owned by exactly one session. It is not safe for
// concurrent use.
type LineItemLedger struct {
	items []LineItem
}

func NewLineItemLedger() *LineItemLedger {
	return &LineItemLedger{}
}

// AddOrIncrement increments the quantity of an existing entry with the same
// ID, or appends a new entry with quantity 1.
func (l *LineItemLedger) AddOrIncrement(entry CatalogEntry) {
	if i := l.indexOf(entry.ID); i >= 0 {
		l.items[i].Quantity++
		return
	}
	l.items = append(l.items, LineItem{
		ID:        entry.ID,
		Name:      entry.Name,
		UnitPrice: entry.Price,
		Quantity:  1,
		TaxRate:   entry.TaxRate,
	})
}

// AdjustQuantity applies delta to the named entry. If the result is <= 0 the
// entry is removed. An absent ID returns ErrItemNotFound and a result above
// math.MaxInt returns ErrQuantityOverflow; both leave the ledger unchanged.
func (l *LineItemLedger) AdjustQuantity(id ItemID, delta int) error {
	i := l.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}
	current := l.items[i].Quantity
	if delta > 0 && current > math.MaxInt-delta {
		return fmt.Errorf("%w: %d + %d", ErrQuantityOverflow, current, delta)
	}
	q := current + delta
	if q <= 0 {
		l.removeAt(i)
		return nil
	}
	l.items[i].Quantity = q
	return nil
}

// Remove deletes the entry unconditionally. Returns false if it was absent.
func (l *LineItemLedger) Remove(id ItemID) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.removeAt(i)
	return true
}

// SetTaxRate changes the per-item rate of an entry.
func (l *LineItemLedger) SetTaxRate(id ItemID, rate decimal.Decimal) error {
	i := l.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}
	l.items[i].TaxRate = rate
	return nil
}

// Subtotal returns the sum of UnitPrice * Quantity. Zero for an empty ledger.
func (l *LineItemLedger) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Items returns a copy of the entries in insertion order.
func (l *LineItemLedger) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the entry with the given ID.
func (l *LineItemLedger) Get(id ItemID) (LineItem, bool) {
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	return LineItem{}, false
}

func (l *LineItemLedger) Len() int { return len(l.items) }

func (l *LineItemLedger) indexOf(id ItemID) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *LineItemLedger) removeAt(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}
