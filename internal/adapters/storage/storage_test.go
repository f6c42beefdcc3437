package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPortfolioStore_GetSeedsOnFirstContact(t *testing.T) {
	s := openTestStorage(t)
	p, err := s.Portfolios().Get(context.Background(), "trader@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.SeedCash, p.Cash)
	require.Empty(t, p.Holdings)
}

func TestPortfolioStore_SaveAndGetRoundTrips(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	p := domain.NewPortfolio("trader@example.com")
	p.Cash = 500_000
	p.Holdings["AAPL"] = domain.Holding{Symbol: "AAPL", Qty: 10, AvgPx: 150, CompanyName: "Apple"}
	p.RealizedPnL = 250
	require.NoError(t, s.Portfolios().Save(ctx, p))

	got, err := s.Portfolios().Get(ctx, "trader@example.com")
	require.NoError(t, err)
	require.Equal(t, 500_000.0, got.Cash)
	require.Equal(t, int64(10), got.Holdings["AAPL"].Qty)
	require.Equal(t, 250.0, got.RealizedPnL)
}

func TestPortfolioStore_ResetAll(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	p := domain.NewPortfolio("trader@example.com")
	p.Cash = 1
	require.NoError(t, s.Portfolios().Save(ctx, p))

	n, err := s.Portfolios().ResetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.Portfolios().Get(ctx, "trader@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.SeedCash, got.Cash)
}

func TestShortStore_OpenAndFIFOOrdering(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	first := domain.ShortLot{ID: "lot-1", User: "u1", Symbol: "TSLA", Qty: 5, AvgShortPx: 200, OpenedAt: time.Now().Add(-time.Minute)}
	second := domain.ShortLot{ID: "lot-2", User: "u1", Symbol: "TSLA", Qty: 3, AvgShortPx: 210, OpenedAt: time.Now()}
	require.NoError(t, s.Shorts().Open(ctx, second))
	require.NoError(t, s.Shorts().Open(ctx, first))

	lots, err := s.Shorts().ActiveLotsFor(ctx, "u1", "TSLA")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	require.Equal(t, "lot-1", lots[0].ID)
	require.Equal(t, "lot-2", lots[1].ID)
}

func TestShortStore_CloseRemovesFromActive(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Shorts().Open(ctx, domain.ShortLot{ID: "lot-1", User: "u1", Symbol: "TSLA", Qty: 5, AvgShortPx: 200, OpenedAt: time.Now()}))
	require.NoError(t, s.Shorts().Close(ctx, "lot-1"))

	lots, err := s.Shorts().ActiveLotsFor(ctx, "u1", "TSLA")
	require.NoError(t, err)
	require.Empty(t, lots)
}

func TestShortStore_ListForUserIncludesInactiveUnlessFiltered(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Shorts().Open(ctx, domain.ShortLot{ID: "lot-1", User: "u1", Symbol: "TSLA", Qty: 5, AvgShortPx: 200, OpenedAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, s.Shorts().Open(ctx, domain.ShortLot{ID: "lot-2", User: "u1", Symbol: "AAPL", Qty: 2, AvgShortPx: 100, OpenedAt: time.Now()}))
	require.NoError(t, s.Shorts().Close(ctx, "lot-1"))

	all, err := s.Shorts().ListForUser(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	activeOnly, err := s.Shorts().ListForUser(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	require.Equal(t, "lot-2", activeOnly[0].ID)
}

func TestTradeStore_ListForUserOrdersNewestFirst(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Trades().Append(ctx, domain.TradeRecord{ID: "t1", User: "u1", Symbol: "AAPL", OrderType: domain.Buy, Qty: 1, Px: 100, Total: 100, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, s.Trades().Append(ctx, domain.TradeRecord{ID: "t2", User: "u1", Symbol: "AAPL", OrderType: domain.Sell, Qty: 1, Px: 110, Total: 110, Timestamp: now}))

	trades, err := s.Trades().ListForUser(ctx, "u1", 1, 50)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "t2", trades[0].ID)
}

func TestContestStore_SaveAndLoadState(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	st := domain.ContestState{
		ID:               "contest-1",
		Status:           domain.StatusRunning,
		StartWallclock:   time.Now().Truncate(time.Second),
		Duration:         10 * time.Minute,
		Symbols:          []string{"AAPL", "TSLA"},
		DataStartMs:      1000,
		DataEndMs:        2000,
		CompressionRatio: 2.5,
	}
	require.NoError(t, s.Contests().SaveState(ctx, st))

	got, err := s.Contests().LoadState(ctx)
	require.NoError(t, err)
	require.Equal(t, st.ID, got.ID)
	require.Equal(t, st.Status, got.Status)
	require.Equal(t, st.Symbols, got.Symbols)
	require.Equal(t, st.CompressionRatio, got.CompressionRatio)
}

func TestContestStore_SaveResultIsAppendOnly(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	r := domain.ContestResult{
		ContestID:         "contest-1",
		EndTime:           time.Now(),
		FinalLeaderboard:  []domain.LeaderboardEntry{{Rank: 1, UserEmail: "a@example.com"}},
		TotalParticipants: 1,
		Winner:            "a@example.com",
	}
	require.NoError(t, s.Contests().SaveResult(ctx, r))

	// A second write for the same contest must fail, not overwrite.
	require.Error(t, s.Contests().SaveResult(ctx, r))
}

func TestTickStore_LoadWindowGroupsBySymbolSorted(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO ticks (symbol, timestamp_ms, open, high, low, close, volume) VALUES
		('AAPL', 2000, 101, 101, 101, 101, 5),
		('AAPL', 1000, 100, 100, 100, 100, 3),
		('TSLA', 1500, 200, 200, 200, 200, 1)`)
	require.NoError(t, err)

	window, err := s.Ticks().LoadWindow(ctx, 0, 3000, 100)
	require.NoError(t, err)
	require.Len(t, window["AAPL"], 2)
	require.Equal(t, int64(1000), window["AAPL"][0].TimestampMs)
	require.Equal(t, int64(2000), window["AAPL"][1].TimestampMs)
	require.Len(t, window["TSLA"], 1)
}
