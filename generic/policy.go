/*
policy.go - Validation policy for ambiguous business rules

PURPOSE:
  Some inputs are accepted as-is by the point-of-sale flows even though the
  result can look wrong: a fixed discount larger than the subtotal gives a
  negative net total, and attendance above the month length gives more
  than 100% of the salary. Whether that is intended is a business decision,
  so it is a configurable policy instead of a silent fix.

POLICIES:
  Permissive (default):
    - Discounts are applied as entered, even above the subtotal
    - Days present is not checked against days in month

  Strict:
    - Negative discount values and percentages above 100 are rejected
    - A discount amount above the subtotal is rejected
    - Days present outside [0, daysInMonth] is rejected

SEE ALSO:
  - tax.go: Discount checks
  - payroll/calculator.go: Attendance checks
*/
package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// VALIDATION POLICY
// =============================================================================

type ValidationPolicy string

const (
	Permissive ValidationPolicy = "permissive"
	Strict     ValidationPolicy = "strict"
)

// ParseValidationPolicy accepts "strict" or "permissive" (case-insensitive).
// Empty input yields Permissive.
func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Permissive):
		return Permissive, nil
	case string(Strict):
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown validation policy %q", s)
	}
}

func (p ValidationPolicy) IsStrict() bool { return p == Strict }
