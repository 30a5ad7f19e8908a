package generic

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD - Finalized transaction handed to the save action
// =============================================================================

// Kind identifies which flow produced a session or record.
type Kind string

const (
	KindBilling  Kind = "billing"
	KindPurchase Kind = "purchase"
)

// ParseKind accepts "billing" or "purchase".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBilling, KindPurchase:
		return Kind(s), nil
	default:
		return "", errors.New("unknown session kind: " + s)
	}
}

// Record is the only structured output of a session. All amounts are
// rounded to currency precision.
type Record struct {
	ID             RecordID
	Kind           Kind
	Items          []LineItem
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	NetTotal       decimal.Decimal
	Payment        PaymentDetails
	CompletedAt    time.Time
}
