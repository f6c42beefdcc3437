package contest

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

// runLoop drives the base-interval ticker: on every tick it computes
// the market-time data window for tick index k, feeds each
// symbol's ticks to the Aggregator, fires maybe_load_next, and every
// LeaderboardEveryTicks ticks refreshes and publishes the leaderboard.
// A pause cancels loopCtx; the loop observes this at the next tick
// boundary and returns without advancing tickIndex further.
func (c *Controller) runLoop(ctx context.Context) {
	defer close(c.loopDoneChan())

	interval := time.Duration(c.cfg.BaseIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.onBaseTick(ctx)
		}
	}
}

func (c *Controller) loopDoneChan() chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loopDone
}

func (c *Controller) onBaseTick(ctx context.Context) {
	c.mu.Lock()
	k := c.tickIndex
	c.tickIndex++
	state := c.state
	clock := c.clock
	c.mu.Unlock()

	// The window for tick k is always derived from k itself, never from
	// accumulated ticker fires, so scheduling jitter cannot drift the
	// replay against the source data.
	baseMs := c.cfg.BaseIntervalSeconds * 1000
	bucketStartSeconds := k * c.cfg.BaseIntervalSeconds
	elapsed := time.Duration(bucketStartSeconds) * time.Second
	windowStartMarketMs := clock.MarketTimeMs(elapsed)
	windowEndMarketMs := clock.MarketTimeMs(elapsed + time.Duration(c.cfg.BaseIntervalSeconds)*time.Second)

	prices := make(map[string]float64, len(state.Symbols))
	for _, symbol := range state.Symbols {
		ticks := c.loader.TicksInRange(symbol, windowStartMarketMs, windowEndMarketMs)
		candle := c.aggregator.BuildBase(symbol, bucketStartSeconds, ticks)
		prices[symbol] = candle.Close

		c.publish("symbol_tick", map[string]any{
			"symbol":            symbol,
			"last_traded_price": candle.Close,
			"volume":            candle.Volume,
			"timestamp":         windowStartMarketMs,
			"progress":          progress(windowEndMarketMs, state.DataStartMs, state.DataEndMs),
			"universal_time":    windowEndMarketMs,
			"tick_index":        k,
		})
	}

	c.publish("market_tick", map[string]any{
		"universal_time": windowEndMarketMs,
		"total_time":     state.DataEndMs - state.DataStartMs,
		"timestamp":      windowStartMarketMs,
		"prices":         prices,
		"progress":       progress(windowEndMarketMs, state.DataStartMs, state.DataEndMs),
		"elapsed_ms":     k * baseMs,
		"tick_updates":   len(state.Symbols),
	})

	c.loader.MaybeLoadNext(ctx, windowEndMarketMs)

	if int(k+1)%c.cfg.LeaderboardEveryTicks == 0 {
		c.refreshLeaderboard(ctx)
	}
}

func progress(marketMs, dataStart, dataEnd int64) float64 {
	span := dataEnd - dataStart
	if span <= 0 {
		return 1
	}
	p := float64(marketMs-dataStart) / float64(span)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

func (c *Controller) refreshLeaderboard(ctx context.Context) {
	entries, err := trading.Build(ctx, c.portfolios, c.shorts, c.aggregator.Prices(), c.identity)
	if err != nil {
		slog.Error("contest: leaderboard refresh failed", "err", err)
		return
	}

	// Advisory only: persisted marks are display data, never an input to
	// realized or unrealized P&L.
	if err := c.shorts.UpdateMarks(ctx, c.aggregator.Prices().All()); err != nil {
		slog.Warn("contest: short mark refresh failed", "err", err)
	}

	c.mu.Lock()
	c.state.CurrentLeaderboard = trading.Top(entries, 100)
	state := c.state
	c.mu.Unlock()

	if err := c.contestStore.SaveState(ctx, state); err != nil {
		slog.Error("contest: failed to persist leaderboard snapshot", "err", err)
	}
	metrics.IncLeaderboardRefresh()
	c.publish("leaderboard", trading.Top(entries, 20))
}
