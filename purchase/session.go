/*
Package purchase configures the supplier purchase flow.

PURPOSE:
  Purchases record stock bought from a supplier. Unlike billing, tax is
  chosen per line from a fixed rate table, because supplier items carry
  different rates.

CONFIGURATION:
  Tax:      per item, rate from generic.PurchaseRates {0, 5, 12, 18, 28}
  Discount: percentage or fixed, none by default
  Split:    off by default

RATE TABLE:
  An item whose catalog rate is outside the table cannot be added, and a
  rate picked for a line must be in the table. Both are rejected with
  generic.ErrInvalidTaxRate and leave the session unchanged.

SEE ALSO:
  - generic/tax.go: Per-item tax arithmetic
  - billing: The counter flow with a flat rate
*/
package purchase

import (
	"time"

	"github.com/tillkit/ledger-core/generic"
)

// Config returns the session configuration of the purchase flow.
func Config(policy generic.ValidationPolicy) generic.SessionConfig {
	engine := generic.NewTaxDiscountEngine(policy)
	engine.Rates = generic.PurchaseRates
	return generic.SessionConfig{
		Kind:   generic.KindPurchase,
		Tax:    generic.PerItemTax(),
		Engine: engine,
	}
}

// NewSession opens a purchase session.
func NewSession(policy generic.ValidationPolicy) *generic.Session {
	return generic.NewSession(Config(policy))
}

// NewSessionWithClock opens a purchase session with a fixed completion clock.
func NewSessionWithClock(policy generic.ValidationPolicy, clock func() time.Time) *generic.Session {
	cfg := Config(policy)
	cfg.Clock = clock
	return generic.NewSession(cfg)
}
