package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillkit/ledger-core/billing"
	"github.com/tillkit/ledger-core/generic"
)

func entry(id, price string) generic.CatalogEntry {
	return generic.CatalogEntry{ID: generic.ItemID(id), Name: id, Price: decimal.RequireFromString(price)}
}

func TestBilling_Config(t *testing.T) {
	cfg := billing.Config(generic.Strict)

	assert.Equal(t, generic.KindBilling, cfg.Kind)
	assert.Equal(t, generic.TaxModeFlat, cfg.Tax.Mode)
	assert.True(t, cfg.Tax.Rate.Equal(generic.BillingFlatRate))
	require.NotNil(t, cfg.Engine)
	assert.Equal(t, generic.Strict, cfg.Engine.Policy)
}

func TestBilling_CounterSale(t *testing.T) {
	// GIVEN: A billing session with 200x1 and 350x2
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := billing.NewSessionWithClock(generic.Permissive, func() time.Time { return at })
	require.NoError(t, s.AddItem(entry("tea", "200")))
	require.NoError(t, s.AddItem(entry("cake", "350")))
	require.NoError(t, s.AddItem(entry("cake", "350")))

	// WHEN: Paying 300 online
	s.EnableSplit()
	require.NoError(t, s.SetOnline("300"))
	rec, err := s.Record()

	// THEN: 945 split 645 / 300
	require.NoError(t, err)
	assert.Equal(t, generic.KindBilling, rec.Kind)
	assert.True(t, rec.TaxAmount.Equal(decimal.NewFromInt(45)))
	assert.True(t, rec.NetTotal.Equal(decimal.NewFromInt(945)))
	assert.True(t, rec.Payment.Cash.Equal(decimal.NewFromInt(645)))
	assert.True(t, rec.Payment.Online.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, at, rec.CompletedAt)
}
