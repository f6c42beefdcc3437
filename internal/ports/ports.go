// Package ports declares the interfaces between the contest engine core
// and its external collaborators: persistent storage, the fan-out
// transport, and the identity provider. Concrete implementations live
// under internal/adapters.
package ports

import (
	"context"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// TickStore is the storage-boundary side of the tick window loader.
// It owns nothing in memory; all windowing/cursor state lives in
// internal/replay.Loader, which calls this port for raw rows.
type TickStore interface {
	// SampleSymbols scans storage at multiple offsets to discover the
	// symbol universe without bias from storage ordering, returning the
	// distinct symbols found and the overall [minTimestamp, maxTimestamp]
	// span available in storage.
	SampleSymbols(ctx context.Context, minSymbols, minRows int) (symbols []string, dataStartMs, dataEndMs int64, err error)

	// LoadWindow loads every tick with timestamp in [startMs, startMs+windowMs)
	// in fixed-size pages, grouped by symbol.
	LoadWindow(ctx context.Context, startMs, windowMs int64, pageSize int) (map[string][]domain.Tick, error)
}

// PortfolioStore persists per-user portfolios. Every mutation on a single
// user's row must be externally serialized by the caller (see
// internal/trading.LockRegistry); the store itself does no per-user
// locking.
type PortfolioStore interface {
	Get(ctx context.Context, user string) (domain.Portfolio, error)
	Save(ctx context.Context, p domain.Portfolio) error
	ListAll(ctx context.Context) ([]domain.Portfolio, error)
	// ResetAll reseeds every portfolio to domain.NewPortfolio and returns
	// how many rows were reset.
	ResetAll(ctx context.Context) (int, error)
}

// ShortStore persists short lots.
type ShortStore interface {
	Open(ctx context.Context, lot domain.ShortLot) error
	// ActiveLotsFor returns active lots for (user, symbol) ordered by
	// OpenedAt ascending, for FIFO covering.
	ActiveLotsFor(ctx context.Context, user, symbol string) ([]domain.ShortLot, error)
	// ActiveLotsAll returns every active lot across all users, for
	// end-of-contest square-off.
	ActiveLotsAll(ctx context.Context) ([]domain.ShortLot, error)
	// ListForUser returns every lot (across all symbols) for user,
	// optionally restricted to active ones, ordered by OpenedAt ascending.
	ListForUser(ctx context.Context, user string, activeOnly bool) ([]domain.ShortLot, error)
	// DecrementQty reduces an open lot's quantity (partial FIFO cover).
	DecrementQty(ctx context.Context, id string, by int64) error
	// Close marks a lot inactive; a tombstone row is retained until cleanup.
	Close(ctx context.Context, id string) error
	// UpdateMarks bulk-updates current_px/unrealized_pnl from the given
	// price index. Advisory only, never a source of truth for P&L.
	UpdateMarks(ctx context.Context, prices map[string]float64) error
	// DeleteAll removes every lot (active or tombstoned) and returns the count.
	DeleteAll(ctx context.Context) (int, error)
}

// TradeStore persists the immutable trade record log.
type TradeStore interface {
	Append(ctx context.Context, t domain.TradeRecord) error
	ListForUser(ctx context.Context, user string, page, limit int) ([]domain.TradeRecord, error)
	DeleteAll(ctx context.Context) (int, error)
}

// ContestStore persists the lifecycle record and result archive.
type ContestStore interface {
	SaveState(ctx context.Context, s domain.ContestState) error
	LoadState(ctx context.Context) (domain.ContestState, error)
	SaveResult(ctx context.Context, r domain.ContestResult) error
}

// IdentityProvider is the opaque boundary to the external auth/identity
// system. It resolves a bearer token to the authenticated user's email
// and whether they hold the admin role.
type IdentityProvider interface {
	Authenticate(ctx context.Context, bearerToken string) (email string, isAdmin bool, err error)
}

// Hub is the fan-out publish/subscribe surface. Publish never
// blocks on a slow subscriber; back-pressured clients are dropped by the
// transport, not by the publisher.
type Hub interface {
	Publish(topic string, payload any)
}

// CandleCache is the read side of the Aggregator's (symbol, timeframe)
// candle cache, exposed to the HTTP handler serving historical candles and
// to new subscribers needing an initial snapshot. The Aggregator is the
// sole writer.
type CandleCache interface {
	// Snapshot returns up to limit most-recent candles for (symbol,
	// timeframe), oldest first.
	Snapshot(symbol string, timeframe domain.Timeframe, limit int) []domain.Candle
}

// PriceIndex is the read side of the symbol -> last_close index. Written
// only by the Aggregator; read concurrently by the Trade Executor,
// portfolio valuation and end-of-contest square-off.
type PriceIndex interface {
	LastClose(symbol string) (float64, bool)
	All() map[string]float64
}
