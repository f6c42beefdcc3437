package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestBuild_RanksByTotalWealthTieBreakByEmail(t *testing.T) {
	portfolios := newFakePortfolios()
	shorts := newFakeShorts()
	prices := newFakePrices()
	ctx := context.Background()

	a := domain.NewPortfolio("b@example.com")
	a.Cash = 1_000_000
	require.NoError(t, portfolios.Save(ctx, a))

	b := domain.NewPortfolio("a@example.com")
	b.Cash = 1_000_000
	require.NoError(t, portfolios.Save(ctx, b))

	entries, err := Build(ctx, portfolios, shorts, prices, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a@example.com", entries[0].UserEmail)
	require.Equal(t, "b@example.com", entries[1].UserEmail)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 2, entries[1].Rank)
}

func TestBuild_UsesIdentityForDisplayName(t *testing.T) {
	portfolios := newFakePortfolios()
	shorts := newFakeShorts()
	prices := newFakePrices()
	ctx := context.Background()

	require.NoError(t, portfolios.Save(ctx, domain.NewPortfolio("trader@example.com")))
	identity := fakeIdentity{names: map[string]string{"trader@example.com": "Trader One"}}

	entries, err := Build(ctx, portfolios, shorts, prices, identity)
	require.NoError(t, err)
	require.Equal(t, "Trader One", entries[0].UserName)
}

func TestTop_ClampsToAvailableEntries(t *testing.T) {
	entries := []domain.LeaderboardEntry{{Rank: 1}, {Rank: 2}}
	require.Len(t, Top(entries, 10), 2)
	require.Len(t, Top(entries, 1), 1)
}
