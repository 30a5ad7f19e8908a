/*
tax.go - Tax and discount arithmetic

PURPOSE:
  Turns a list of line items plus a tax and a discount specification into
  the four reported figures of a transaction: subtotal, tax, discount and
  net total. This is a pure arithmetic layer shared by every flow.

TAX MODES:
  Flat:     tax = subtotal * rate / 100          (billing: 5%)
  PerItem:  tax = sum(unitPrice * qty * itemRate / 100)
            itemRate must come from the rate table (purchase: 0,5,12,18,28)

DISCOUNT:
  percentage: discount = subtotal * value / 100
  fixed:      discount = value

NET TOTAL:
  net = subtotal - discount + tax

ROUNDING:
  Everything is accumulated at full precision. Totals.Rounded() rounds the
  reported figures to two decimals. Rounding each item first would compound
  error across lines.

SEE ALSO:
  - policy.go: Strict vs permissive discount handling
  - session.go: Calls Compute after every edit
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SPECIFICATIONS
// =============================================================================

type TaxMode string

const (
	TaxModeFlat    TaxMode = "flat"
	TaxModePerItem TaxMode = "per_item"
)

// TaxSpec selects flat or per-item tax. Rate is used only in flat mode.
type TaxSpec struct {
	Mode TaxMode
	Rate decimal.Decimal
}

func FlatTax(rate decimal.Decimal) TaxSpec { return TaxSpec{Mode: TaxModeFlat, Rate: rate} }
func PerItemTax() TaxSpec                  { return TaxSpec{Mode: TaxModePerItem} }

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type DiscountSpec struct {
	Type  DiscountType
	Value decimal.Decimal
}

func NoDiscount() DiscountSpec { return DiscountSpec{Type: DiscountFixed, Value: decimal.Zero} }

// ParseDiscountType accepts "percentage" or "fixed".
func ParseDiscountType(s string) (DiscountType, error) {
	switch DiscountType(s) {
	case DiscountPercentage, DiscountFixed:
		return DiscountType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown discount type %q", ErrInvalidDiscount, s)
	}
}

// =============================================================================
// RATE TABLE
// =============================================================================

// RateTable is the fixed set of percentages a per-item rate may take.
type RateTable []decimal.Decimal

// PurchaseRates is the rate table of the purchase flow.
var PurchaseRates = RateTable{
	decimal.NewFromInt(0),
	decimal.NewFromInt(5),
	decimal.NewFromInt(12),
	decimal.NewFromInt(18),
	decimal.NewFromInt(28),
}

// BillingFlatRate is the flat tax percentage of the billing flow.
var BillingFlatRate = decimal.NewFromInt(5)

func (t RateTable) Contains(rate decimal.Decimal) bool {
	for _, r := range t {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// =============================================================================
// TOTALS
// =============================================================================

// Totals holds the figures of one transaction.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	NetTotal       decimal.Decimal
}

// Rounded returns the totals rounded to currency precision.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       RoundMoney(t.Subtotal),
		TaxAmount:      RoundMoney(t.TaxAmount),
		DiscountAmount: RoundMoney(t.DiscountAmount),
		NetTotal:       RoundMoney(t.NetTotal),
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// TaxDiscountEngine is stateless apart from its configuration and can be
// shared between sessions.
type TaxDiscountEngine struct {
	Policy ValidationPolicy

	// Rates restricts per-item rates. Nil accepts any rate.
	Rates RateTable
}

func NewTaxDiscountEngine(policy ValidationPolicy) *TaxDiscountEngine {
	return &TaxDiscountEngine{Policy: policy}
}

// ItemTax returns unitPrice * quantity * rate / 100 at full precision.
func (e *TaxDiscountEngine) ItemTax(item LineItem, rate decimal.Decimal) decimal.Decimal {
	return Percent(item.LineTotal(), rate)
}

// FlatTax returns subtotal * rate / 100.
func (e *TaxDiscountEngine) FlatTax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Percent(subtotal, rate)
}

// Discount returns the discount amount for the subtotal. The permissive
// policy never fails; the strict policy rejects negative values,
// percentages above 100 and amounts above the subtotal.
func (e *TaxDiscountEngine) Discount(subtotal decimal.Decimal, spec DiscountSpec) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch spec.Type {
	case DiscountPercentage:
		amount = Percent(subtotal, spec.Value)
	case DiscountFixed, "":
		amount = spec.Value
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", ErrInvalidDiscount, spec.Type)
	}

	if !e.Policy.IsStrict() {
		return amount, nil
	}
	if spec.Value.IsNegative() {
		return decimal.Zero, &PolicyViolationError{Field: "discount", Value: spec.Value, Limit: decimal.Zero, Err: ErrInvalidDiscount}
	}
	if spec.Type == DiscountPercentage && spec.Value.GreaterThan(hundred) {
		return decimal.Zero, &PolicyViolationError{Field: "discount_percentage", Value: spec.Value, Limit: hundred, Err: ErrInvalidDiscount}
	}
	if amount.GreaterThan(subtotal) {
		return decimal.Zero, &PolicyViolationError{Field: "discount", Value: amount, Limit: subtotal, Err: ErrDiscountExceedsSubtotal}
	}
	return amount, nil
}

// NetTotal returns subtotal - discount + tax.
func (e *TaxDiscountEngine) NetTotal(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(tax)
}

// ValidateRate checks a per-item rate against the configured rate table.
func (e *TaxDiscountEngine) ValidateRate(rate decimal.Decimal) error {
	if e.Rates != nil && !e.Rates.Contains(rate) {
		return fmt.Errorf("%w: %s", ErrInvalidTaxRate, rate)
	}
	return nil
}

// Compute produces full-precision totals for the items.
func (e *TaxDiscountEngine) Compute(items []LineItem, tax TaxSpec, discount DiscountSpec) (Totals, error) {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}

	taxAmount := decimal.Zero
	switch tax.Mode {
	case TaxModePerItem:
		for _, it := range items {
			if err := e.ValidateRate(it.TaxRate); err != nil {
				return Totals{}, err
			}
			taxAmount = taxAmount.Add(e.ItemTax(it, it.TaxRate))
		}
	default:
		taxAmount = e.FlatTax(subtotal, tax.Rate)
	}

	discountAmount, err := e.Discount(subtotal, discount)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		NetTotal:       e.NetTotal(subtotal, taxAmount, discountAmount),
	}, nil
}
