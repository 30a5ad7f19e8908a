/*
split.go - Two-leg split payment allocation

PURPOSE:
  A payment can be settled in one go (Full) or split between a cash leg and
  an online leg. The SplitAllocator owns both legs and is the single writer
  of both. Every edit names one leg; the allocator derives the other, so the
  pair can never drift out of sync.

STATES:
  Unsplit: cash = netTotal, online = 0
  Split:   cash + online = netTotal, both legs in [0, netTotal]

TRANSITIONS:
  EnableSplit:        online = last online value clamped to [0, total]
  DisableSplit:       cash = total, online = 0 (online value remembered)
  SetCash / SetOnline:
    empty or unparseable -> clear: that leg 0 (shown empty), other leg = total
    v rounded to 2dp first, then
    0 <= v <= total      -> accept: that leg v, other leg = total - v
    otherwise            -> reject: RejectedEditError, nothing changes
  OnNetTotalChanged:  keep online unless it exceeds the new total, in which
                      case online = total and cash = 0

SETTLEMENT:
  Every accepted operation reduces to settle(online): clamp the online leg to
  [0, total] and set cash = total - online. Cash is always derived, so the
  sum holds exactly at decimal precision. PaymentDetails derives cash from
  the rounded total and rounded online leg for the same reason.

NEGATIVE TOTALS:
  Only reachable under the permissive policy (discount above subtotal). The
  online leg clamps to 0 and cash carries the negative total; every numeric
  leg edit is rejected because [0, total] is empty.

SEE ALSO:
  - session.go: Calls OnNetTotalChanged after totals are finalized
  - record.go: PaymentDetails is embedded in the finalized record
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT TYPES
// =============================================================================

type OnlineMethod string

const (
	MethodUPI        OnlineMethod = "upi"
	MethodCard       OnlineMethod = "card"
	MethodNetBanking OnlineMethod = "net_banking"
	MethodWallet     OnlineMethod = "wallet"
)

// DefaultOnlineMethod is used until the user picks one.
const DefaultOnlineMethod = MethodUPI

func ParseOnlineMethod(s string) (OnlineMethod, error) {
	switch m := OnlineMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodUPI, MethodCard, MethodNetBanking, MethodWallet:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

type PaymentType string

const (
	PaymentFull  PaymentType = "Full"
	PaymentSplit PaymentType = "Split"
)

// PaymentDetails is the payment breakdown handed to the save action.
// Full payments set Amount; split payments set Cash, Online and OnlineMethod.
type PaymentDetails struct {
	Type         PaymentType
	Amount       *decimal.Decimal
	Cash         *decimal.Decimal
	Online       *decimal.Decimal
	OnlineMethod OnlineMethod
}

// SplitAllocation is a read-only snapshot of the allocator.
type SplitAllocation struct {
	Enabled       bool
	Total         decimal.Decimal
	Cash          decimal.Decimal
	Online        decimal.Decimal
	OnlineMethod  OnlineMethod
	CashCleared   bool
	OnlineCleared bool
}

// =============================================================================
// SPLIT ALLOCATOR
// =============================================================================

// SplitAllocator is owned by one session and is not safe for concurrent use.
type SplitAllocator struct {
	total   decimal.Decimal
	cash    decimal.Decimal
	online  decimal.Decimal
	enabled bool
	method  OnlineMethod

	// held keeps the online leg across DisableSplit/EnableSplit.
	held decimal.Decimal

	// cleared flags mark a leg the user emptied; shown blank, valued 0.
	cashCleared   bool
	onlineCleared bool
}

// NewSplitAllocator starts Unsplit with the whole total on cash.
func NewSplitAllocator(total decimal.Decimal) *SplitAllocator {
	return &SplitAllocator{
		total:  total,
		cash:   total,
		online: decimal.Zero,
		held:   decimal.Zero,
		method: DefaultOnlineMethod,
	}
}

func (a *SplitAllocator) Enabled() bool              { return a.enabled }
func (a *SplitAllocator) Total() decimal.Decimal     { return a.total }
func (a *SplitAllocator) Cash() decimal.Decimal      { return a.cash }
func (a *SplitAllocator) Online() decimal.Decimal    { return a.online }
func (a *SplitAllocator) OnlineMethod() OnlineMethod { return a.method }

// Allocation returns a snapshot of the current state.
func (a *SplitAllocator) Allocation() SplitAllocation {
	return SplitAllocation{
		Enabled:       a.enabled,
		Total:         a.total,
		Cash:          a.cash,
		Online:        a.online,
		OnlineMethod:  a.method,
		CashCleared:   a.cashCleared,
		OnlineCleared: a.onlineCleared,
	}
}

// EnableSplit moves to Split. The remembered online value is kept if it
// still fits the total.
func (a *SplitAllocator) EnableSplit() {
	a.enabled = true
	a.clearFlags()
	a.settle(a.held)
}

// DisableSplit moves to Unsplit: cash = total, online = 0.
func (a *SplitAllocator) DisableSplit() {
	if a.enabled {
		a.held = a.online
	}
	a.enabled = false
	a.clearFlags()
	a.cash = a.total
	a.online = decimal.Zero
}

// SetCash applies a raw cash field edit. See the package header for the
// clear/accept/reject rules.
func (a *SplitAllocator) SetCash(raw string) error {
	v, ok := parseLeg(raw)
	if !ok {
		return a.clearLeg(LegCash)
	}
	return a.SetCashAmount(v)
}

// SetOnline applies a raw online field edit.
func (a *SplitAllocator) SetOnline(raw string) error {
	v, ok := parseLeg(raw)
	if !ok {
		return a.clearLeg(LegOnline)
	}
	return a.SetOnlineAmount(v)
}

// SetCashAmount sets the cash leg to v if 0 <= v <= total. v is rounded
// to currency precision first.
func (a *SplitAllocator) SetCashAmount(v decimal.Decimal) error {
	v = RoundMoney(v)
	if err := a.checkLeg(LegCash, v); err != nil {
		return err
	}
	a.clearFlags()
	a.settle(a.total.Sub(v))
	return nil
}

// SetOnlineAmount sets the online leg to v if 0 <= v <= total. v is
// rounded to currency precision first.
func (a *SplitAllocator) SetOnlineAmount(v decimal.Decimal) error {
	v = RoundMoney(v)
	if err := a.checkLeg(LegOnline, v); err != nil {
		return err
	}
	a.clearFlags()
	a.settle(v)
	return nil
}

// OnNetTotalChanged re-derives both legs for a new total. It must be called
// only after the new total is final.
func (a *SplitAllocator) OnNetTotalChanged(total decimal.Decimal) {
	a.total = total
	if !a.enabled {
		a.cash = total
		a.online = decimal.Zero
		return
	}
	a.settle(a.online)
	if !a.cash.IsZero() {
		a.cashCleared = false
	}
	if !a.online.IsZero() {
		a.onlineCleared = false
	}
}

// SetOnlineMethod picks the online channel. Allowed while online > 0.
func (a *SplitAllocator) SetOnlineMethod(m OnlineMethod) error {
	if _, err := ParseOnlineMethod(string(m)); err != nil {
		return err
	}
	if !a.enabled || !a.online.IsPositive() {
		return ErrNoOnlineLeg
	}
	a.method = m
	return nil
}

// PaymentDetails returns the breakdown for the save action.
func (a *SplitAllocator) PaymentDetails() PaymentDetails {
	if !a.enabled {
		amount := RoundMoney(a.total)
		return PaymentDetails{Type: PaymentFull, Amount: &amount}
	}
	// cash is derived from the rounded pair so the legs sum to the amount due.
	online := RoundMoney(a.online)
	cash := RoundMoney(a.total).Sub(online)
	return PaymentDetails{
		Type:         PaymentSplit,
		Cash:         &cash,
		Online:       &online,
		OnlineMethod: a.method,
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

// settle clamps online to [0, total] and derives cash.
func (a *SplitAllocator) settle(online decimal.Decimal) {
	upper := decimal.Max(a.total, decimal.Zero)
	a.online = Clamp(online, decimal.Zero, upper)
	a.cash = a.total.Sub(a.online)
	a.held = a.online
}

func (a *SplitAllocator) checkLeg(leg Leg, v decimal.Decimal) error {
	if !a.enabled {
		return ErrSplitDisabled
	}
	if v.IsNegative() || v.GreaterThan(a.total) {
		return &RejectedEditError{Leg: leg, Value: v, Total: a.total}
	}
	return nil
}

// clearLeg empties one leg and pushes the whole total onto the other.
func (a *SplitAllocator) clearLeg(leg Leg) error {
	if !a.enabled {
		return ErrSplitDisabled
	}
	a.clearFlags()
	if leg == LegCash {
		a.settle(a.total)
		a.cashCleared = true
		return nil
	}
	a.settle(decimal.Zero)
	a.onlineCleared = true
	return nil
}

func (a *SplitAllocator) clearFlags() {
	a.cashCleared = false
	a.onlineCleared = false
}

// parseLeg returns false for empty or unparseable input.
func parseLeg(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
