/*
Package payroll provides salary proration for the salary-entry flow.

PURPOSE:
  A monthly salary is scaled by the fraction of the month actually worked,
  then itemized deductions, extras and advances are netted out. This is
  independent of billing: it is driven only by its own inputs.

FORMULAS:
  proratedBase = baseSalary / daysInMonth * daysPresent
  netAccrual   = proratedBase - sum(deductions) + sum(extras) - sum(advances)

  daysInMonth is derived from the selected date (see calendar.go) and is
  never edited directly.

PRECISION:
  The base is multiplied before dividing so that whole-month attendance
  returns the base exactly. Figures are rounded to two decimals only in the
  Statement.

EXAMPLE:
  50000 / 30 * 28 = 46666.67
  46666.67 - 2000 + 1500 - 0 = 46166.67

SEE ALSO:
  - entry.go: The salary-entry session
  - rows.go: Deduction, extra and advance rows
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator is stateless apart from its validation policy.
type Calculator struct {
	Policy generic.ValidationPolicy
}

func NewCalculator(policy generic.ValidationPolicy) *Calculator {
	return &Calculator{Policy: policy}
}

// CheckAttendance applies the validation policy to days present.
func (c *Calculator) CheckAttendance(daysInMonth, daysPresent int) error {
	if daysInMonth <= 0 {
		return fmt.Errorf("%w: got %d", generic.ErrInvalidDaysInMonth, daysInMonth)
	}
	if c.Policy.IsStrict() && (daysPresent < 0 || daysPresent > daysInMonth) {
		return &generic.PolicyViolationError{
			Field: "days_present",
			Value: decimal.NewFromInt(int64(daysPresent)),
			Limit: decimal.NewFromInt(int64(daysInMonth)),
			Err:   generic.ErrAttendanceOutOfRange,
		}
	}
	return nil
}

// Prorate scales baseSalary by daysPresent/daysInMonth at full precision.
func (c *Calculator) Prorate(baseSalary decimal.Decimal, daysInMonth, daysPresent int) (decimal.Decimal, error) {
	if err := c.CheckAttendance(daysInMonth, daysPresent); err != nil {
		return decimal.Zero, err
	}
	return baseSalary.
		Mul(decimal.NewFromInt(int64(daysPresent))).
		Div(decimal.NewFromInt(int64(daysInMonth))), nil
}

// NetAccrual nets the rows out of the prorated base.
func (c *Calculator) NetAccrual(proratedBase decimal.Decimal, deductions, extras, advances []Row) decimal.Decimal {
	return proratedBase.
		Sub(sumRows(deductions)).
		Add(sumRows(extras)).
		Sub(sumRows(advances))
}

func sumRows(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
