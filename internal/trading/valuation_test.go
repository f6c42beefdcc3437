package trading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestRevalue_LongHoldingsOnly(t *testing.T) {
	prices := newFakePrices()
	prices.set("AAPL", 120)

	p := domain.NewPortfolio("u1")
	p.Cash = 900_000
	p.Holdings["AAPL"] = domain.Holding{Symbol: "AAPL", Qty: 10, AvgPx: 100}

	Revalue(&p, prices, nil)

	require.Equal(t, 1200.0, p.Derived.MarketValue)
	require.Equal(t, 200.0, p.Derived.UnrealizedPnL)
	require.Equal(t, 901_200.0, p.Derived.TotalWealth)
}

func TestRevalue_ShortLiabilityNotSubtractedTwice(t *testing.T) {
	prices := newFakePrices()
	prices.set("TSLA", 150)

	p := domain.NewPortfolio("u1")
	p.Cash = 1_001_000 // already credited from the short sale proceeds
	shorts := []domain.ShortLot{{Symbol: "TSLA", Qty: 5, AvgShortPx: 200, IsActive: true}}

	Revalue(&p, prices, shorts)

	require.Equal(t, 750.0, p.Derived.ShortLiability)
	require.Equal(t, 250.0, p.Derived.UnrealizedPnL) // (200-150)*5
	require.Equal(t, p.Cash+250.0, p.Derived.TotalWealth)
}

func TestRevalue_IgnoresInactiveShorts(t *testing.T) {
	prices := newFakePrices()
	prices.set("TSLA", 150)

	p := domain.NewPortfolio("u1")
	shorts := []domain.ShortLot{{Symbol: "TSLA", Qty: 5, AvgShortPx: 200, IsActive: false}}

	Revalue(&p, prices, shorts)

	require.Zero(t, p.Derived.ShortLiability)
	require.Zero(t, p.Derived.UnrealizedPnL)
}
