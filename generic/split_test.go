package generic_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillkit/ledger-core/generic"
)

func splitAt(total string) *generic.SplitAllocator {
	a := generic.NewSplitAllocator(dec(total))
	a.EnableSplit()
	return a
}

// assertSums checks cash + online = total with both legs in range.
func assertSums(t *testing.T, a *generic.SplitAllocator) {
	t.Helper()
	assert.True(t, a.Cash().Add(a.Online()).Equal(a.Total()),
		"cash %s + online %s != total %s", a.Cash(), a.Online(), a.Total())
	if a.Total().IsNegative() {
		return
	}
	assert.False(t, a.Cash().IsNegative(), "cash negative")
	assert.False(t, a.Online().IsNegative(), "online negative")
	assert.False(t, a.Online().GreaterThan(a.Total()), "online above total")
}

// =============================================================================
// STATES
// =============================================================================

func TestSplit_NewIsUnsplit(t *testing.T) {
	a := generic.NewSplitAllocator(dec("945"))

	assert.False(t, a.Enabled())
	assertMoney(t, "945", a.Cash())
	assertMoney(t, "0", a.Online())
	assert.Equal(t, generic.MethodUPI, a.OnlineMethod())
}

func TestSplit_EnableFirstTime_AllOnCash(t *testing.T) {
	a := splitAt("945")

	assert.True(t, a.Enabled())
	assertMoney(t, "945", a.Cash())
	assertMoney(t, "0", a.Online())
}

// =============================================================================
// LEG EDITS
// =============================================================================

func TestSplit_SetOnline_ThenRejectAboveTotal(t *testing.T) {
	// GIVEN: netTotal 945, split enabled
	a := splitAt("945")

	// WHEN: Online set to 300
	require.NoError(t, a.SetOnline("300"))

	// THEN: cash 645, online 300
	assertMoney(t, "645", a.Cash())
	assertMoney(t, "300", a.Online())

	// WHEN: Online set to 2000
	err := a.SetOnline("2000")

	// THEN: Rejected, nothing changed
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrEditRejected)
	assert.True(t, generic.IsRejection(err))

	var rejected *generic.RejectedEditError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, generic.LegOnline, rejected.Leg)
	assertMoney(t, "945", rejected.Total)

	assertMoney(t, "645", a.Cash())
	assertMoney(t, "300", a.Online())
}

func TestSplit_SetCash_DerivesOnline(t *testing.T) {
	a := splitAt("945")

	require.NoError(t, a.SetCash("145.50"))

	assertMoney(t, "145.50", a.Cash())
	assertMoney(t, "799.50", a.Online())
	assertSums(t, a)
}

func TestSplit_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		leg        generic.Leg
		raw        string
		wantErr    bool
		wantCash   string
		wantOnline string
	}{
		{"online zero", generic.LegOnline, "0", false, "945", "0"},
		{"online equal total", generic.LegOnline, "945", false, "0", "945"},
		{"online just above", generic.LegOnline, "945.01", true, "945", "0"},
		{"online negative", generic.LegOnline, "-1", true, "945", "0"},
		{"cash zero", generic.LegCash, "0", false, "0", "945"},
		{"cash equal total", generic.LegCash, "945", false, "945", "0"},
		{"cash above", generic.LegCash, "1000", true, "945", "0"},
		{"cash negative", generic.LegCash, "-0.01", true, "945", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := splitAt("945")

			var err error
			if tt.leg == generic.LegCash {
				err = a.SetCash(tt.raw)
			} else {
				err = a.SetOnline(tt.raw)
			}

			if tt.wantErr {
				assert.ErrorIs(t, err, generic.ErrEditRejected)
			} else {
				assert.NoError(t, err)
			}
			assertMoney(t, tt.wantCash, a.Cash())
			assertMoney(t, tt.wantOnline, a.Online())
		})
	}
}

func TestSplit_SubCentLegRoundedToCurrency(t *testing.T) {
	tests := []struct {
		name       string
		leg        generic.Leg
		raw        string
		wantCash   string
		wantOnline string
	}{
		{"online half cent up", generic.LegOnline, "300.005", "644.99", "300.01"},
		{"online below half cent", generic.LegOnline, "300.004", "645", "300"},
		{"cash half cent up", generic.LegCash, "100.125", "100.13", "844.87"},
		{"online rounds onto total", generic.LegOnline, "945.004", "0", "945"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := splitAt("945")

			var err error
			if tt.leg == generic.LegCash {
				err = a.SetCash(tt.raw)
			} else {
				err = a.SetOnline(tt.raw)
			}

			require.NoError(t, err)
			assertMoney(t, tt.wantCash, a.Cash())
			assertMoney(t, tt.wantOnline, a.Online())
			assertSums(t, a)

			pd := a.PaymentDetails()
			assertMoney(t, "945", pd.Cash.Add(*pd.Online))
		})
	}
}

func TestSplit_PaymentDetails_SumToRoundedTotal(t *testing.T) {
	// GIVEN: A total carrying sub-cent precision and an online leg
	a := splitAt("100.005")
	require.NoError(t, a.SetOnline("33.33"))

	// WHEN: The breakdown is produced
	pd := a.PaymentDetails()

	// THEN: The rounded legs add up to the rounded total
	assertMoney(t, "33.33", *pd.Online)
	assertMoney(t, "66.68", *pd.Cash)
	assertMoney(t, "100.01", pd.Cash.Add(*pd.Online))
}

func TestSplit_ClearLeg(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "12,5"} {
		t.Run(fmt.Sprintf("online %q", raw), func(t *testing.T) {
			// GIVEN: online 300 of 945
			a := splitAt("945")
			require.NoError(t, a.SetOnline("300"))

			// WHEN: The online field is emptied or garbled
			require.NoError(t, a.SetOnline(raw))

			// THEN: online 0 and shown empty, cash carries total
			alloc := a.Allocation()
			assertMoney(t, "0", alloc.Online)
			assertMoney(t, "945", alloc.Cash)
			assert.True(t, alloc.OnlineCleared)
			assert.False(t, alloc.CashCleared)
		})
	}

	t.Run("cash", func(t *testing.T) {
		a := splitAt("945")
		require.NoError(t, a.SetCash(""))

		alloc := a.Allocation()
		assertMoney(t, "0", alloc.Cash)
		assertMoney(t, "945", alloc.Online)
		assert.True(t, alloc.CashCleared)
	})
}

func TestSplit_LegEditWhileUnsplit(t *testing.T) {
	a := generic.NewSplitAllocator(dec("945"))

	assert.ErrorIs(t, a.SetOnline("300"), generic.ErrSplitDisabled)
	assert.ErrorIs(t, a.SetCash(""), generic.ErrSplitDisabled)
	assertMoney(t, "945", a.Cash())
	assertMoney(t, "0", a.Online())
}

// =============================================================================
// TOTAL CHANGES
// =============================================================================

func TestSplit_TotalRises_OnlineKept(t *testing.T) {
	// GIVEN: online 300 of 945
	a := splitAt("945")
	require.NoError(t, a.SetOnline("300"))

	// WHEN: Upstream raises the total to 1200
	a.OnNetTotalChanged(dec("1200"))

	// THEN: online stays 300, cash absorbs the change
	assertMoney(t, "300", a.Online())
	assertMoney(t, "900", a.Cash())
}

func TestSplit_TotalDrops_OnlineClamped(t *testing.T) {
	// GIVEN: online 300
	a := splitAt("945")
	require.NoError(t, a.SetOnline("300"))

	// WHEN: Total drops below online
	a.OnNetTotalChanged(dec("250"))

	// THEN: online clamps to total, cash 0
	assertMoney(t, "250", a.Online())
	assertMoney(t, "0", a.Cash())
}

func TestSplit_TotalChangeWhileUnsplit(t *testing.T) {
	a := generic.NewSplitAllocator(dec("945"))
	a.OnNetTotalChanged(dec("100"))

	assertMoney(t, "100", a.Cash())
	assertMoney(t, "0", a.Online())
}

func TestSplit_NegativeTotal(t *testing.T) {
	// GIVEN: online 300, then a permissive discount drives the total negative
	a := splitAt("945")
	require.NoError(t, a.SetOnline("300"))

	a.OnNetTotalChanged(dec("-50"))

	// THEN: online clamps to 0, cash carries the negative total
	assertMoney(t, "0", a.Online())
	assertMoney(t, "-50", a.Cash())
	assertSums(t, a)

	// AND: Every numeric leg edit is rejected
	assert.ErrorIs(t, a.SetOnline("0"), generic.ErrEditRejected)
	assert.ErrorIs(t, a.SetCash("-50"), generic.ErrEditRejected)
}

// =============================================================================
// DISABLE / ENABLE ROUND TRIP
// =============================================================================

func TestSplit_DisableThenEnable_RestoresOnline(t *testing.T) {
	// GIVEN: online 300
	a := splitAt("945")
	require.NoError(t, a.SetOnline("300"))

	// WHEN: Split disabled
	a.DisableSplit()

	// THEN: all on cash
	assert.False(t, a.Enabled())
	assertMoney(t, "945", a.Cash())
	assertMoney(t, "0", a.Online())

	// WHEN: Re-enabled with unchanged total
	a.EnableSplit()

	// THEN: previous online restored
	assertMoney(t, "300", a.Online())
	assertMoney(t, "645", a.Cash())
}

func TestSplit_EnableAfterTotalDrop_ClampsRemembered(t *testing.T) {
	a := splitAt("945")
	require.NoError(t, a.SetOnline("300"))
	a.DisableSplit()

	a.OnNetTotalChanged(dec("200"))
	a.EnableSplit()

	assertMoney(t, "200", a.Online())
	assertMoney(t, "0", a.Cash())
}

// =============================================================================
// METHOD AND PAYMENT DETAILS
// =============================================================================

func TestSplit_SetOnlineMethod(t *testing.T) {
	a := splitAt("945")

	// Online leg is zero: refused
	assert.ErrorIs(t, a.SetOnlineMethod(generic.MethodCard), generic.ErrNoOnlineLeg)

	require.NoError(t, a.SetOnline("100"))
	require.NoError(t, a.SetOnlineMethod(generic.MethodCard))
	assert.Equal(t, generic.MethodCard, a.OnlineMethod())

	assert.ErrorIs(t, a.SetOnlineMethod("cheque"), generic.ErrUnknownMethod)
	assert.Equal(t, generic.MethodCard, a.OnlineMethod())
}

func TestParseOnlineMethod(t *testing.T) {
	m, err := generic.ParseOnlineMethod(" Net_Banking ")
	require.NoError(t, err)
	assert.Equal(t, generic.MethodNetBanking, m)

	_, err = generic.ParseOnlineMethod("crypto")
	assert.ErrorIs(t, err, generic.ErrUnknownMethod)
	assert.True(t, generic.IsClientError(err))
}

func TestSplit_PaymentDetails(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		a := generic.NewSplitAllocator(dec("945"))
		pd := a.PaymentDetails()

		assert.Equal(t, generic.PaymentFull, pd.Type)
		require.NotNil(t, pd.Amount)
		assertMoney(t, "945", *pd.Amount)
		assert.Nil(t, pd.Cash)
		assert.Nil(t, pd.Online)
	})

	t.Run("split", func(t *testing.T) {
		a := splitAt("945")
		require.NoError(t, a.SetOnline("300"))
		require.NoError(t, a.SetOnlineMethod(generic.MethodWallet))
		pd := a.PaymentDetails()

		assert.Equal(t, generic.PaymentSplit, pd.Type)
		assert.Nil(t, pd.Amount)
		assertMoney(t, "645", *pd.Cash)
		assertMoney(t, "300", *pd.Online)
		assert.Equal(t, generic.MethodWallet, pd.OnlineMethod)
	})
}

// =============================================================================
// INVARIANTS UNDER RANDOM EDITS
// =============================================================================

func TestSplit_RandomEdits_LegsAlwaysSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := generic.NewSplitAllocator(dec("500"))

	for i := 0; i < 2000; i++ {
		amount := fmt.Sprintf("%d.%03d", rng.Intn(1500)-100, rng.Intn(1000))
		switch rng.Intn(7) {
		case 0:
			a.EnableSplit()
		case 1:
			a.DisableSplit()
		case 2:
			before := a.Allocation()
			if err := a.SetCash(amount); generic.IsRejection(err) {
				assert.Equal(t, before, a.Allocation(), "rejected edit changed state")
			}
		case 3:
			before := a.Allocation()
			if err := a.SetOnline(amount); generic.IsRejection(err) {
				assert.Equal(t, before, a.Allocation(), "rejected edit changed state")
			}
		case 4:
			_ = a.SetOnline("")
		case 5:
			a.OnNetTotalChanged(dec(fmt.Sprintf("%d.%02d", rng.Intn(1200), rng.Intn(100))))
		case 6:
			_ = a.SetCash("")
		}

		assertSums(t, a)
		if !a.Enabled() {
			assertMoney(t, "0", a.Online())
		} else {
			pd := a.PaymentDetails()
			assertMoney(t, generic.RoundMoney(a.Total()).String(), pd.Cash.Add(*pd.Online), "step %d", i)
		}
	}
}
