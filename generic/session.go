/*
session.go - One open billing or purchase transaction

PURPOSE:
  A Session ties a LineItemLedger, a TaxDiscountEngine and a SplitAllocator
  together and runs the edit cycle. It is what the presentation layer
  drives: each user edit is one method call.

EDIT CYCLE (total-then-allocator):
  1. Apply the edit to the ledger, tax spec or discount spec
  2. Recompute totals at full precision
  3. Round the net total and hand it to SplitAllocator.OnNetTotalChanged
  The allocator therefore never sees a stale total.

REJECTION:
  If step 2 fails (strict policy, invalid rate) the edit is rolled back and
  the error returned. Ledger, specs, totals and allocation are unchanged.

LIFECYCLE:
  Created when a billing/purchase page opens, discarded on complete or
  navigation. Never shared between callers.

EXAMPLE:
  s := generic.NewSession(generic.SessionConfig{
      Kind:   generic.KindBilling,
      Tax:    generic.FlatTax(generic.BillingFlatRate),
      Engine: generic.NewTaxDiscountEngine(generic.Permissive),
  })
  s.AddItem(entry)
  s.EnableSplit()
  err := s.SetOnline("300")

SEE ALSO:
  - billing/session.go, purchase/session.go: Configured presets
*/
package generic

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SESSION
// =============================================================================

type SessionID string

// SessionConfig configures a new session. Nil Engine uses a permissive
// engine; nil Clock uses time.Now.
type SessionConfig struct {
	Kind   Kind
	Tax    TaxSpec
	Engine *TaxDiscountEngine
	Clock  func() time.Time
}

type Session struct {
	id       SessionID
	kind     Kind
	ledger   *LineItemLedger
	engine   *TaxDiscountEngine
	tax      TaxSpec
	discount DiscountSpec
	alloc    *SplitAllocator
	totals   Totals
	clock    func() time.Time
}

func NewSession(cfg SessionConfig) *Session {
	engine := cfg.Engine
	if engine == nil {
		engine = NewTaxDiscountEngine(Permissive)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		id:       SessionID(uuid.NewString()),
		kind:     cfg.Kind,
		ledger:   NewLineItemLedger(),
		engine:   engine,
		tax:      cfg.Tax,
		discount: NoDiscount(),
		alloc:    NewSplitAllocator(decimal.Zero),
		clock:    clock,
	}
}

func (s *Session) ID() SessionID              { return s.id }
func (s *Session) Kind() Kind                 { return s.kind }
func (s *Session) Items() []LineItem          { return s.ledger.Items() }
func (s *Session) TaxSpec() TaxSpec           { return s.tax }
func (s *Session) DiscountSpec() DiscountSpec { return s.discount }
func (s *Session) Engine() *TaxDiscountEngine { return s.engine }

// Totals returns the rounded reported figures.
func (s *Session) Totals() Totals { return s.totals.Rounded() }

// Allocation returns a snapshot of the split allocation.
func (s *Session) Allocation() SplitAllocation { return s.alloc.Allocation() }

// =============================================================================
// LEDGER EDITS
// =============================================================================

func (s *Session) AddItem(entry CatalogEntry) error {
	return s.edit(func() error {
		s.ledger.AddOrIncrement(entry)
		return nil
	})
}

// AdjustQuantity returns ErrItemNotFound for an absent ID and
// ErrQuantityOverflow for a delta the quantity cannot hold; nothing changes.
func (s *Session) AdjustQuantity(id ItemID, delta int) error {
	return s.edit(func() error {
		return s.ledger.AdjustQuantity(id, delta)
	})
}

func (s *Session) RemoveItem(id ItemID) error {
	return s.edit(func() error {
		if !s.ledger.Remove(id) {
			return ErrItemNotFound
		}
		return nil
	})
}

// SetItemTaxRate picks the per-item rate for one line. Flat-tax sessions
// reject it.
func (s *Session) SetItemTaxRate(id ItemID, rate decimal.Decimal) error {
	if s.tax.Mode != TaxModePerItem {
		return fmt.Errorf("%w: session uses flat tax", ErrInvalidTaxRate)
	}
	if err := s.engine.ValidateRate(rate); err != nil {
		return err
	}
	return s.edit(func() error {
		return s.ledger.SetTaxRate(id, rate)
	})
}

// =============================================================================
// TAX AND DISCOUNT EDITS
// =============================================================================

// SetTaxRate changes the flat rate. Per-item sessions reject it.
func (s *Session) SetTaxRate(rate decimal.Decimal) error {
	if s.tax.Mode == TaxModePerItem {
		return fmt.Errorf("%w: session uses per-item tax", ErrInvalidTaxRate)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidTaxRate, rate)
	}
	return s.edit(func() error {
		s.tax.Rate = rate
		return nil
	})
}

func (s *Session) SetDiscount(spec DiscountSpec) error {
	return s.edit(func() error {
		s.discount = spec
		return nil
	})
}

// =============================================================================
// SPLIT PAYMENT EDITS
// =============================================================================

func (s *Session) EnableSplit()  { s.alloc.EnableSplit() }
func (s *Session) DisableSplit() { s.alloc.DisableSplit() }

func (s *Session) SetCash(raw string) error   { return s.alloc.SetCash(raw) }
func (s *Session) SetOnline(raw string) error { return s.alloc.SetOnline(raw) }

func (s *Session) SetOnlineMethod(m OnlineMethod) error { return s.alloc.SetOnlineMethod(m) }

// =============================================================================
// COMPLETION
// =============================================================================

// Record builds the finalized record. Fails with ErrEmptyLedger when there
// is nothing to record.
func (s *Session) Record() (Record, error) {
	if s.ledger.Len() == 0 {
		return Record{}, ErrEmptyLedger
	}
	t := s.totals.Rounded()
	return Record{
		ID:             RecordID(uuid.NewString()),
		Kind:           s.kind,
		Items:          s.ledger.Items(),
		Subtotal:       t.Subtotal,
		TaxAmount:      t.TaxAmount,
		DiscountAmount: t.DiscountAmount,
		NetTotal:       t.NetTotal,
		Payment:        s.alloc.PaymentDetails(),
		CompletedAt:    s.clock().UTC(),
	}, nil
}

// =============================================================================
// EDIT CYCLE
// =============================================================================

// edit applies fn, recomputes totals and then notifies the allocator. Any
// error rolls back ledger and specs.
func (s *Session) edit(fn func() error) error {
	savedItems := s.ledger.Items()
	savedTax := s.tax
	savedDiscount := s.discount

	rollback := func() {
		s.ledger.items = savedItems
		s.tax = savedTax
		s.discount = savedDiscount
	}

	if err := fn(); err != nil {
		rollback()
		return err
	}
	totals, err := s.engine.Compute(s.ledger.items, s.tax, s.discount)
	if err != nil {
		rollback()
		return err
	}
	s.totals = totals
	s.alloc.OnNetTotalChanged(RoundMoney(totals.NetTotal))
	return nil
}
