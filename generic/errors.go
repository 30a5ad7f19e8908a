/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Flow packages (billing, purchase, payroll) return these directly or wrap
  them with additional context.

ERROR CATEGORIES:
  1. Rejections - An edit violated a hard boundary; state is unchanged
  2. Lookups - A referenced item or row does not exist
  3. Preconditions - Inputs that cannot occur when callers derive them correctly

USAGE:
  if err := alloc.SetOnline("2000"); err != nil {
      if generic.IsRejection(err) {
          // tell the user, nothing changed
      }
  }

SEE ALSO:
  - split.go: Returns RejectedEditError
  - tax.go: Returns policy violations under the strict policy
  - payroll/calculator.go: Wraps ErrInvalidDaysInMonth
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEditRejected is returned when a split leg edit falls outside
	// [0, netTotal]. The allocation is left exactly as it was.
	ErrEditRejected = errors.New("edit rejected")

	// ErrSplitDisabled is returned when a leg is edited while split mode is off.
	ErrSplitDisabled = errors.New("split payment is not enabled")

	// ErrUnknownMethod is returned for an online method outside the known set.
	ErrUnknownMethod = errors.New("unknown online payment method")

	// ErrNoOnlineLeg is returned when setting the online method while the
	// online leg carries nothing.
	ErrNoOnlineLeg = errors.New("online leg is zero")

	// ErrItemNotFound is returned when an operation names an absent line item.
	ErrItemNotFound = errors.New("line item not found")

	// ErrQuantityOverflow is returned when a quantity adjustment would exceed
	// the largest representable quantity.
	ErrQuantityOverflow = errors.New("quantity overflow")

	// ErrInvalidTaxRate is returned when a per-item rate is not in the rate table.
	ErrInvalidTaxRate = errors.New("tax rate not in rate table")

	// ErrInvalidDiscount is returned by the strict policy for negative values
	// or percentages above 100.
	ErrInvalidDiscount = errors.New("invalid discount")

	// ErrDiscountExceedsSubtotal is returned by the strict policy when the
	// discount amount is larger than the subtotal.
	ErrDiscountExceedsSubtotal = errors.New("discount exceeds subtotal")

	// ErrEmptyLedger is returned when completing a session with no items.
	ErrEmptyLedger = errors.New("ledger has no items")

	// ErrInvalidDaysInMonth is a precondition violation: days-in-month is
	// always >= 28 when derived from a calendar date.
	ErrInvalidDaysInMonth = errors.New("days in month must be positive")

	// ErrAttendanceOutOfRange is returned by the strict policy when days
	// present falls outside [0, daysInMonth].
	ErrAttendanceOutOfRange = errors.New("days present out of range")

	// ErrRowNotFound is returned when editing or removing an absent row.
	ErrRowNotFound = errors.New("row not found")

	// ErrRecordNotFound is returned by recorders for unknown record IDs.
	ErrRecordNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Leg names one side of a split payment.
type Leg string

const (
	LegCash   Leg = "cash"
	LegOnline Leg = "online"
)

// RejectedEditError describes a split leg edit that was refused.
type RejectedEditError struct {
	Leg   Leg
	Value decimal.Decimal
	Total decimal.Decimal
}

func (e *RejectedEditError) Error() string {
	return fmt.Sprintf("edit rejected: %s %s outside [0, %s]", e.Leg, e.Value, e.Total)
}

func (e *RejectedEditError) Unwrap() error {
	return ErrEditRejected
}

// PolicyViolationError reports which input the strict policy refused.
type PolicyViolationError struct {
	Field string
	Value decimal.Decimal
	Limit decimal.Decimal
	Err   error
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%v: %s=%s (limit %s)", e.Err, e.Field, e.Value, e.Limit)
}

func (e *PolicyViolationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if the error means an edit was refused and the
// caller should give the user feedback.
func IsRejection(err error) bool {
	return errors.Is(err, ErrEditRejected) ||
		errors.Is(err, ErrSplitDisabled) ||
		errors.Is(err, ErrNoOnlineLeg) ||
		errors.Is(err, ErrInvalidDiscount) ||
		errors.Is(err, ErrDiscountExceedsSubtotal) ||
		errors.Is(err, ErrAttendanceOutOfRange) ||
		errors.Is(err, ErrEmptyLedger)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrQuantityOverflow) ||
		errors.Is(err, ErrInvalidTaxRate) ||
		errors.Is(err, ErrInvalidDaysInMonth)
}

// IsNotFound returns true if the error indicates a missing item, row or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrRowNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
