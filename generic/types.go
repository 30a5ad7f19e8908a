/*
Package generic provides the shared transaction computation engine.

PURPOSE:
  This package contains the flow-agnostic types and algorithms behind every
  point-of-sale editing session. Billing, purchase and salary entry all
  aggregate amounts, apply tax and discount, and split what is due between
  payment legs. The same engine handles all of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: decimal amounts at full precision, rounded only when reported
  - CatalogEntry: a read-only priced product supplied by the data collaborator
  - LineItem: a priced, quantified entry inside one ledger
  - Identifiers: type-safe IDs for items and records

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Late rounding: Accumulate at full precision, round the reported figures
  3. Single owner: Every session owns its ledger and allocator exclusively
  4. Explicit rejection: Invalid edits return errors and leave state intact

USAGE:
  ledger := generic.NewLineItemLedger()
  ledger.AddOrIncrement(generic.CatalogEntry{ID: "tea", Name: "Tea", Price: decimal.RequireFromString("200")})
  totals, _ := generic.NewTaxDiscountEngine(generic.Permissive).Compute(ledger.Items(), generic.FlatTax(generic.NewMoney(5)), generic.NoDiscount())

SEE ALSO:
  - lineitems.go: Line item ledger
  - tax.go: Tax and discount arithmetic
  - split.go: Split payment allocator
  - session.go: Edit cycle with total-then-allocator ordering
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amounts with currency precision
// =============================================================================

// CurrencyPlaces is the number of decimal places reported figures are rounded to.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// NewMoney builds an amount from an integer number of currency units.
func NewMoney(units int64) decimal.Decimal {
	return decimal.NewFromInt(units)
}

// ParseDecimalOrZero parses s, yielding zero for malformed input. Stored
// amounts are written by this module, so a parse failure means an empty column.
func ParseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds an amount to currency precision (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Percent returns base*rate/100.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// Clamp bounds v to [lo, hi]. If hi < lo the lower bound wins.
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(hi) {
		v = hi
	}
	if v.LessThan(lo) {
		v = lo
	}
	return v
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type RecordID string

// =============================================================================
// CATALOG ENTRY - Read-only input from the data collaborator
// =============================================================================

// CatalogEntry is a product as supplied by the catalog. The engine never
// modifies it; adding it to a ledger copies the fields it needs.
type CatalogEntry struct {
	ID       ItemID
	Name     string
	Price    decimal.Decimal
	Category string
	TaxRate  decimal.Decimal
}

// =============================================================================
// LINE ITEM - Priced, quantified ledger entry
// =============================================================================

// LineItem is one entry of a ledger.
//
// INVARIANT: Quantity >= 1. An item reaching zero is removed from the
// ledger, never retained.
type LineItem struct {
	ID        ItemID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int

	// TaxRate is the percentage used by per-item tax. Ignored by flat tax.
	TaxRate decimal.Decimal
}

// LineTotal returns UnitPrice * Quantity at full precision.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
