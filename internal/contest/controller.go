// Package contest implements the contest lifecycle state machine, the
// base-interval ticker loop that drives the replay, and the
// end-of-contest cleanup.
package contest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
	"github.com/alejandrodnm/contestengine/internal/candle"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
	"github.com/alejandrodnm/contestengine/internal/replay"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

// Config holds the controller's scheduling tunables.
type Config struct {
	BaseIntervalSeconds   int64 // nominal 5
	LeaderboardEveryTicks int   // nominal 6 (≈30s real time at a 5s base interval)
}

func DefaultConfig() Config {
	return Config{BaseIntervalSeconds: candle.BaseIntervalSeconds, LeaderboardEveryTicks: 6}
}

// Controller drives the base-interval ticker loop and owns the lifecycle
// record and replay clock exclusively. No other component may write
// domain.ContestState.
type Controller struct {
	cfg Config

	loader       *replay.Loader
	aggregator   *candle.Aggregator
	contestStore ports.ContestStore
	portfolios   ports.PortfolioStore
	shorts       ports.ShortStore
	trades       ports.TradeStore
	hub          ports.Hub
	identity     trading.Identity

	mu            sync.RWMutex
	state         domain.ContestState
	clock         *replay.Clock
	tickIndex     int64
	cancel        context.CancelFunc
	loopDone      chan struct{}
	autoStopTimer *time.Timer
	lastCleanup   domain.CleanupSummary
}

func New(
	loader *replay.Loader,
	aggregator *candle.Aggregator,
	contestStore ports.ContestStore,
	portfolios ports.PortfolioStore,
	shorts ports.ShortStore,
	trades ports.TradeStore,
	hub ports.Hub,
	identity trading.Identity,
	cfg Config,
) *Controller {
	return &Controller{
		cfg:          cfg,
		loader:       loader,
		aggregator:   aggregator,
		contestStore: contestStore,
		portfolios:   portfolios,
		shorts:       shorts,
		trades:       trades,
		hub:          hub,
		identity:     identity,
		state:        domain.ContestState{Status: domain.StatusIdle},
	}
}

// IsRunning satisfies trading.ContestStatusReader.
func (c *Controller) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Status == domain.StatusRunning
}

// State returns a snapshot of the current lifecycle record.
func (c *Controller) State() domain.ContestState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastCleanupSummary returns the summary produced by the most recent
// Stop/auto-stop cleanup run, for callers (e.g. the admin HTTP endpoint)
// that need it alongside the resulting state.
func (c *Controller) LastCleanupSummary() domain.CleanupSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCleanup
}

// Discover runs the Tick Window Loader's initialize() against the current
// data source and persists the discovered symbol universe and data span
// onto the (still-IDLE) contest state, so /symbols and /contest/state
// can answer before the first start. It refuses while a
// contest is RUNNING or PAUSED.
func (c *Controller) Discover(ctx context.Context) (replay.Universe, error) {
	c.mu.RLock()
	status := c.state.Status
	c.mu.RUnlock()
	if status == domain.StatusRunning || status == domain.StatusPaused {
		return replay.Universe{}, domain.NewError(domain.ErrContestConflict, "cannot re-discover data while a contest is running or paused")
	}

	universe, err := c.loader.Initialize(ctx)
	if err != nil {
		return replay.Universe{}, err
	}

	c.mu.Lock()
	c.state.Symbols = universe.Symbols
	c.state.DataStartMs = universe.DataStartMs
	c.state.DataEndMs = universe.DataEndMs
	state := c.state
	c.mu.Unlock()

	if err := c.contestStore.SaveState(ctx, state); err != nil {
		slog.Error("contest: failed to persist discovered symbol universe", "err", err)
	}
	return universe, nil
}

// Start transitions IDLE -> RUNNING.
func (c *Controller) Start(ctx context.Context, symbols []string, duration time.Duration) (domain.ContestState, error) {
	c.mu.Lock()
	if c.state.Status != domain.StatusIdle && c.state.Status != domain.StatusStopped {
		c.mu.Unlock()
		return domain.ContestState{}, domain.NewError(domain.ErrContestConflict, "a contest is already running or paused")
	}
	c.mu.Unlock()

	universe, err := c.loader.Initialize(ctx)
	if err != nil {
		return domain.ContestState{}, domain.WrapError(domain.ErrContestConflict, "insufficient replay data to start a contest", err)
	}
	if len(symbols) == 0 {
		symbols = universe.Symbols
	}

	compressionRatio := float64(universe.DataEndMs-universe.DataStartMs) / duration.Seconds() / 1000
	state := domain.ContestState{
		ID:               uuid.NewString(),
		Status:           domain.StatusRunning,
		StartWallclock:   time.Now(),
		Duration:         duration,
		Symbols:          symbols,
		DataStartMs:      universe.DataStartMs,
		DataEndMs:        universe.DataEndMs,
		CompressionRatio: compressionRatio,
	}

	if _, err := c.portfolios.ResetAll(ctx); err != nil {
		return domain.ContestState{}, fmt.Errorf("contest.Start: reset portfolios: %w", err)
	}
	if err := c.loader.LoadWindow(ctx, state.DataStartMs); err != nil {
		return domain.ContestState{}, fmt.Errorf("contest.Start: load first window: %w", err)
	}

	clock := replay.NewClock(state, nil)
	c.mu.Lock()
	c.state = state
	c.clock = clock
	c.tickIndex = 0
	c.mu.Unlock()

	if err := c.contestStore.SaveState(ctx, state); err != nil {
		slog.Error("contest: failed to persist start state", "err", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(time.Until(clock.AutoStopAt()), func() {
		slog.Info("contest: auto-stop firing", "contest_id", state.ID)
		if _, err := c.Stop(context.Background()); err != nil {
			slog.Error("contest: auto-stop cleanup failed", "err", err)
		}
	})
	c.mu.Lock()
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	c.autoStopTimer = timer
	c.mu.Unlock()

	go c.runLoop(loopCtx)

	metrics.SetContestStatus(string(domain.StatusRunning))
	c.publish("contest_started", map[string]any{"contest_id": state.ID})
	slog.Info("contest: started", "contest_id", state.ID, "symbols", len(symbols), "compression_ratio", compressionRatio)
	return state, nil
}

// Pause transitions RUNNING -> PAUSED. The auto-stop timer keeps running.
func (c *Controller) Pause(ctx context.Context) (domain.ContestState, error) {
	c.mu.Lock()
	if c.state.Status != domain.StatusRunning {
		c.mu.Unlock()
		return domain.ContestState{}, domain.NewError(domain.ErrContestConflict, "contest is not running")
	}
	c.state.Status = domain.StatusPaused
	state := c.state
	cancel := c.cancel
	done := c.loopDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Drain the loop before returning so a prompt Resume never has two
	// loops driving the aggregator at once.
	if done != nil {
		<-done
	}

	if err := c.contestStore.SaveState(ctx, state); err != nil {
		slog.Error("contest: failed to persist pause state", "err", err)
	}
	metrics.SetContestStatus(string(domain.StatusPaused))
	c.publish("contest_paused", map[string]any{"contest_id": state.ID})
	return state, nil
}

// Resume transitions PAUSED -> RUNNING, restarting the ticker loop from
// the tick index it left off at.
func (c *Controller) Resume(ctx context.Context) (domain.ContestState, error) {
	c.mu.Lock()
	if c.state.Status != domain.StatusPaused {
		c.mu.Unlock()
		return domain.ContestState{}, domain.NewError(domain.ErrContestConflict, "contest is not paused")
	}
	c.state.Status = domain.StatusRunning
	state := c.state
	c.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	c.mu.Unlock()
	go c.runLoop(loopCtx)

	if err := c.contestStore.SaveState(ctx, state); err != nil {
		slog.Error("contest: failed to persist resume state", "err", err)
	}
	metrics.SetContestStatus(string(domain.StatusRunning))
	c.publish("contest_resumed", map[string]any{"contest_id": state.ID})
	return state, nil
}

// Stop transitions RUNNING/PAUSED -> STOPPED via cleanup. It always
// reaches STOPPED, even if individual cleanup substeps fail.
func (c *Controller) Stop(ctx context.Context) (domain.ContestState, error) {
	c.mu.Lock()
	if c.state.Status != domain.StatusRunning && c.state.Status != domain.StatusPaused {
		c.mu.Unlock()
		return domain.ContestState{}, domain.NewError(domain.ErrContestConflict, "no contest is running or paused")
	}
	state := c.state
	cancel := c.cancel
	done := c.loopDone
	timer := c.autoStopTimer
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	// Drain the ticker loop so no market_tick is published after
	// contest_ended.
	if done != nil {
		<-done
	}

	summary, leaderboard := c.cleanup(ctx, state)

	c.mu.Lock()
	c.state.Status = domain.StatusStopped
	c.state.CurrentLeaderboard = trading.Top(leaderboard, 100)
	c.lastCleanup = summary
	stopped := c.state
	c.mu.Unlock()

	if err := c.contestStore.SaveState(ctx, stopped); err != nil {
		slog.Error("contest: failed to persist stopped state", "err", err)
	}

	metrics.SetContestStatus(string(domain.StatusStopped))
	c.publish("leaderboard", trading.Top(leaderboard, 20))
	c.publish("contest_ended", map[string]any{
		"contest_id": state.ID,
		"top_10":     trading.Top(leaderboard, 10),
		"summary":    summary,
	})
	slog.Info("contest: stopped", "contest_id", state.ID, "cleanup_errors", len(summary.Errors))
	return stopped, nil
}

func (c *Controller) publish(topic string, payload any) {
	if c.hub == nil {
		return
	}
	c.hub.Publish(topic, payload)
}
