/*
Package billing configures the counter billing flow.

PURPOSE:
  Billing is the customer-facing sale: items from the catalog at their
  price, a flat tax on the subtotal, an optional discount, and a payment
  that is either full or split between cash and an online method.

CONFIGURATION:
  Tax:      flat, BillingFlatRate (5%) of the subtotal
  Discount: percentage or fixed, none by default
  Split:    off by default

EXAMPLE:
  s := billing.NewSession(generic.Permissive)
  s.AddItem(tea)              // 200 x1
  s.AddItem(cake); s.AddItem(cake) // 350 x2
  s.Totals()                  // subtotal 900, tax 45, net 945

SEE ALSO:
  - generic/session.go: The edit cycle
  - purchase: The supplier-side flow with per-item rates
*/
package billing

import (
	"time"

	"github.com/tillkit/ledger-core/generic"
)

// Config returns the session configuration of the billing flow.
func Config(policy generic.ValidationPolicy) generic.SessionConfig {
	return generic.SessionConfig{
		Kind:   generic.KindBilling,
		Tax:    generic.FlatTax(generic.BillingFlatRate),
		Engine: generic.NewTaxDiscountEngine(policy),
	}
}

// NewSession opens a billing session.
func NewSession(policy generic.ValidationPolicy) *generic.Session {
	return generic.NewSession(Config(policy))
}

// NewSessionWithClock opens a billing session with a fixed completion clock.
func NewSessionWithClock(policy generic.ValidationPolicy, clock func() time.Time) *generic.Session {
	cfg := Config(policy)
	cfg.Clock = clock
	return generic.NewSession(cfg)
}
