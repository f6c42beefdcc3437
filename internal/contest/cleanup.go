package contest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

// cleanup executes the end-of-contest sequence: square off every active
// short at its last-known price, rank the final leaderboard and persist
// it as an append-only result, then wipe trades, shorts, and portfolios
// back to the seed baseline. It never aborts early: every substep's
// error is recorded in the returned summary so the controller still
// reaches STOPPED even on a partial failure; a stuck RUNNING state
// would block every future contest.
func (c *Controller) cleanup(ctx context.Context, state domain.ContestState) (domain.CleanupSummary, []domain.LeaderboardEntry) {
	var summary domain.CleanupSummary

	lots, err := c.shorts.ActiveLotsAll(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list active shorts: %v", err))
	}
	for _, lot := range lots {
		if err := c.squareOff(ctx, lot); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("square off %s/%s: %v", lot.User, lot.Symbol, err))
			continue
		}
		summary.ShortsSquaredOff++
	}

	// The final ranking must be taken after the square-off settles cash
	// and realized P&L, but before the wipe resets every portfolio.
	leaderboard, err := trading.Build(ctx, c.portfolios, c.shorts, c.aggregator.Prices(), c.identity)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("final leaderboard: %v", err))
	}
	result := domain.ContestResult{
		ContestID:         state.ID,
		EndTime:           time.Now(),
		FinalLeaderboard:  leaderboard,
		TotalParticipants: len(leaderboard),
	}
	if len(leaderboard) > 0 {
		result.Winner = leaderboard[0].UserEmail
	}
	if err := c.contestStore.SaveResult(ctx, result); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("persist final result: %v", err))
	}

	if n, err := c.trades.DeleteAll(ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("delete trades: %v", err))
	} else {
		summary.TradesDeleted = n
	}

	if n, err := c.shorts.DeleteAll(ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("delete shorts: %v", err))
	} else {
		summary.ShortsDeleted = n
	}

	if n, err := c.portfolios.ResetAll(ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("reset portfolios: %v", err))
	} else {
		summary.PortfoliosReset = n
	}

	slog.Info("contest: cleanup complete", "contest_id", state.ID, "shorts_squared_off", summary.ShortsSquaredOff,
		"trades_deleted", summary.TradesDeleted, "shorts_deleted", summary.ShortsDeleted,
		"portfolios_reset", summary.PortfoliosReset, "errors", len(summary.Errors))
	return summary, leaderboard
}

// squareOff covers one active short lot at its symbol's last-known
// price, settling cash and realized P&L and appending a BUY_TO_COVER
// trade record. The cash reduction settles the obligation whose
// proceeds were credited when the short was opened.
func (c *Controller) squareOff(ctx context.Context, lot domain.ShortLot) error {
	px, ok := c.aggregator.Prices().LastClose(lot.Symbol)
	if !ok {
		px = lot.AvgShortPx
	}
	px = math.Round(px*100) / 100

	p, err := c.portfolios.Get(ctx, lot.User)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	coverCost := px * float64(lot.Qty)
	pnl := (lot.AvgShortPx - px) * float64(lot.Qty)
	p.Cash -= coverCost
	p.RealizedPnL += pnl
	p.LastUpdated = time.Now()

	if err := c.shorts.Close(ctx, lot.ID); err != nil {
		return fmt.Errorf("close lot: %w", err)
	}
	if err := c.portfolios.Save(ctx, p); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	if err := c.trades.Append(ctx, domain.TradeRecord{
		ID:        uuid.NewString(),
		User:      lot.User,
		Symbol:    lot.Symbol,
		OrderType: domain.BuyToCover,
		Qty:       lot.Qty,
		Px:        px,
		Total:     coverCost,
		Timestamp: time.Now(),
	}); err != nil {
		return fmt.Errorf("append square-off trade: %w", err)
	}
	return nil
}
