// Package trading implements the trade executor, portfolio valuation,
// and the leaderboard builder.
package trading

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
)

// ContestStatusReader reports whether the contest is currently accepting
// trades. The executor depends on this rather than on the full Contest
// Controller to keep the dependency direction one-way (controller ->
// executor never happens; executor -> controller-status only).
type ContestStatusReader interface {
	IsRunning() bool
}

// Executor is the engine's sole entry point for mutating a user's
// portfolio and short positions. It never holds the per-user lock across
// an external publish, only across the storage mutation itself.
type Executor struct {
	locks      *LockRegistry
	portfolios ports.PortfolioStore
	shorts     ports.ShortStore
	trades     ports.TradeStore
	prices     ports.PriceIndex
	hub        ports.Hub
	contest    ContestStatusReader
	now        func() time.Time
}

func NewExecutor(portfolios ports.PortfolioStore, shorts ports.ShortStore, trades ports.TradeStore, prices ports.PriceIndex, hub ports.Hub, contest ContestStatusReader) *Executor {
	return &Executor{
		locks:      NewLockRegistry(),
		portfolios: portfolios,
		shorts:     shorts,
		trades:     trades,
		prices:     prices,
		hub:        hub,
		contest:    contest,
		now:        time.Now,
	}
}

// Result is what a successful Execute returns.
type Result struct {
	Trade     domain.TradeRecord
	Portfolio domain.Portfolio
}

// Execute runs one order to completion. It is atomic in the sense that a
// precondition rejection mutates nothing, and once the mutation begins it
// always completes (no partial portfolio state is ever persisted).
func (e *Executor) Execute(ctx context.Context, user, symbol string, orderType domain.OrderType, qty int64, companyName string) (Result, error) {
	if !e.contest.IsRunning() {
		return Result{}, domain.NewError(domain.ErrNotRunning, "contest is not running")
	}
	if qty <= 0 {
		return Result{}, domain.NewError(domain.ErrInvalidQty, "quantity must be a positive integer")
	}
	px, ok := e.prices.LastClose(symbol)
	if !ok {
		return Result{}, domain.NewError(domain.ErrNoPrice, fmt.Sprintf("no price available for %s", symbol))
	}

	var result Result
	err := e.locks.WithLock(user, func() error {
		var innerErr error
		result, innerErr = e.applyLocked(ctx, user, symbol, orderType, qty, px, companyName)
		return innerErr
	})
	if err != nil {
		return Result{}, err
	}

	metrics.IncTrade(string(orderType))
	e.publishPortfolio(user, result.Portfolio)
	return result, nil
}

func (e *Executor) applyLocked(ctx context.Context, user, symbol string, orderType domain.OrderType, qty int64, px float64, companyName string) (Result, error) {
	p, err := e.portfolios.Get(ctx, user)
	if err != nil {
		return Result{}, fmt.Errorf("trading.Execute: load portfolio: %w", err)
	}

	total := round2(float64(qty) * px)
	pxRounded := round2(px)

	switch orderType {
	case domain.Buy:
		if p.Cash < total {
			return Result{}, domain.NewError(domain.ErrInsufficientCash, "insufficient cash for buy")
		}
		p.Cash -= total
		h := p.Holdings[symbol]
		newQty := h.Qty + qty
		newAvg := (h.AvgPx*float64(h.Qty) + total) / float64(newQty)
		if h.CompanyName == "" {
			h.CompanyName = companyName
		}
		h.Qty = newQty
		h.AvgPx = newAvg
		if p.Holdings == nil {
			p.Holdings = make(map[string]domain.Holding)
		}
		p.Holdings[symbol] = h

	case domain.Sell:
		h, ok := p.Holdings[symbol]
		if !ok || h.Qty < qty {
			return Result{}, domain.NewError(domain.ErrInsufficientHoldings, "insufficient holdings for sell")
		}
		p.Cash += total
		p.RealizedPnL += (pxRounded - h.AvgPx) * float64(qty)
		h.Qty -= qty
		if h.Qty == 0 {
			delete(p.Holdings, symbol)
		} else {
			p.Holdings[symbol] = h
		}

	case domain.ShortSell:
		p.Cash += total
		if err := e.shorts.Open(ctx, domain.ShortLot{
			ID:         uuid.NewString(),
			User:       user,
			Symbol:     symbol,
			Qty:        qty,
			AvgShortPx: pxRounded,
			OpenedAt:   e.now(),
			IsActive:   true,
			CurrentPx:  pxRounded,
		}); err != nil {
			return Result{}, fmt.Errorf("trading.Execute: open short lot: %w", err)
		}

	case domain.BuyToCover:
		lots, err := e.shorts.ActiveLotsFor(ctx, user, symbol)
		if err != nil {
			return Result{}, fmt.Errorf("trading.Execute: load short lots: %w", err)
		}
		sort.Slice(lots, func(i, j int) bool { return lots[i].OpenedAt.Before(lots[j].OpenedAt) })
		var available int64
		for _, l := range lots {
			available += l.Qty
		}
		if available < qty {
			return Result{}, domain.NewError(domain.ErrNoShorts, "insufficient active short quantity to cover")
		}
		remaining := qty
		var realizedFromCover float64
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			covered := remaining
			if lot.Qty < covered {
				covered = lot.Qty
			}
			realizedFromCover += (lot.AvgShortPx - pxRounded) * float64(covered)
			if covered == lot.Qty {
				if err := e.shorts.Close(ctx, lot.ID); err != nil {
					return Result{}, fmt.Errorf("trading.Execute: close short lot: %w", err)
				}
			} else {
				if err := e.shorts.DecrementQty(ctx, lot.ID, covered); err != nil {
					return Result{}, fmt.Errorf("trading.Execute: decrement short lot: %w", err)
				}
			}
			remaining -= covered
		}
		p.Cash -= total
		p.RealizedPnL += realizedFromCover

	default:
		return Result{}, domain.NewError(domain.ErrInvalidQty, fmt.Sprintf("unknown order type %q", orderType))
	}

	trade := domain.TradeRecord{
		ID:        uuid.NewString(),
		User:      user,
		Symbol:    symbol,
		OrderType: orderType,
		Qty:       qty,
		Px:        pxRounded,
		Total:     total,
		Timestamp: e.now(),
	}
	if err := e.trades.Append(ctx, trade); err != nil {
		return Result{}, fmt.Errorf("trading.Execute: append trade record: %w", err)
	}

	var shortsForUser []domain.ShortLot
	if lots, err := e.shorts.ActiveLotsAll(ctx); err == nil {
		for _, l := range lots {
			if l.User == user {
				shortsForUser = append(shortsForUser, l)
			}
		}
	}
	Revalue(&p, e.prices, shortsForUser)
	p.LastUpdated = e.now()

	if err := e.portfolios.Save(ctx, p); err != nil {
		return Result{}, fmt.Errorf("trading.Execute: save portfolio: %w", err)
	}

	return Result{Trade: trade, Portfolio: p}, nil
}

func (e *Executor) publishPortfolio(user string, p domain.Portfolio) {
	if e.hub == nil {
		return
	}
	e.hub.Publish("user:"+user, map[string]any{
		"type":      "portfolio_update",
		"portfolio": p,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
