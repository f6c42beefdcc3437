package trading

import (
	"context"
	"fmt"
	"sort"

	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
)

// Identity resolves a portfolio's user key (the authenticated email) to a
// display name. The engine only ever stores email as the portfolio key,
// so the leaderboard needs a side lookup for UserName.
type Identity interface {
	DisplayName(email string) string
}

// Build recomputes every portfolio's derived values against the current
// Price Index and active shorts, then ranks by total_wealth descending,
// ties broken by user_email ascending for determinism.
func Build(ctx context.Context, portfolios ports.PortfolioStore, shorts ports.ShortStore, prices ports.PriceIndex, identity Identity) ([]domain.LeaderboardEntry, error) {
	all, err := portfolios.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard.Build: list portfolios: %w", err)
	}
	activeLots, err := shorts.ActiveLotsAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard.Build: list active shorts: %w", err)
	}
	lotsByUser := make(map[string][]domain.ShortLot)
	for _, lot := range activeLots {
		lotsByUser[lot.User] = append(lotsByUser[lot.User], lot)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(all))
	for i := range all {
		p := all[i]
		Revalue(&p, prices, lotsByUser[p.User])
		name := p.User
		if identity != nil {
			name = identity.DisplayName(p.User)
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserName:        name,
			UserEmail:       p.User,
			TotalWealth:     p.Derived.TotalWealth,
			TotalPnL:        p.Derived.TotalPnL,
			ReturnPercent:   p.ReturnPercent(),
			Cash:            p.Cash,
			LongMarketValue: p.Derived.MarketValue,
			ShortLiability:  p.Derived.ShortLiability,
			RealizedPnL:     p.RealizedPnL,
			UnrealizedPnL:   p.Derived.UnrealizedPnL,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalWealth != entries[j].TotalWealth {
			return entries[i].TotalWealth > entries[j].TotalWealth
		}
		return entries[i].UserEmail < entries[j].UserEmail
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Top returns the first n entries (or fewer, if entries is shorter).
func Top(entries []domain.LeaderboardEntry, n int) []domain.LeaderboardEntry {
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]domain.LeaderboardEntry, n)
	copy(out, entries[:n])
	return out
}
