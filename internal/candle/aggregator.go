// Package candle implements the candle aggregator: base candle
// construction from ticks with carry-forward gap synthesis, and the
// static-configuration cascade to higher timeframes.
package candle

import (
	"math"

	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
)

// CascadeRule names one higher timeframe's source and the count of
// contiguous source candles it aggregates.
type CascadeRule struct {
	Source      domain.Timeframe
	Target      domain.Timeframe
	Count       int
	IntervalSec int64 // real-seconds interval of Source
}

// DefaultCascade is the standard timeframe ladder:
// 30s from 6x5s, 1m from 2x30s, 3m from 3x1m, 5m from 5x1m.
func DefaultCascade() []CascadeRule {
	return []CascadeRule{
		{Source: "5s", Target: "30s", Count: 6, IntervalSec: 5},
		{Source: "30s", Target: "1m", Count: 2, IntervalSec: 30},
		{Source: "1m", Target: "3m", Count: 3, IntervalSec: 60},
		{Source: "1m", Target: "5m", Count: 5, IntervalSec: 60},
	}
}

const BaseTimeframe domain.Timeframe = "5s"
const BaseIntervalSeconds int64 = 5

// gapTolerance is the allowed deviation, in seconds, from an exact
// interval multiple before a cascade run is considered discontiguous.
const gapTolerance = 0.5

// Aggregator owns the candle cache and the price index exclusively.
// It is not safe for concurrent BuildBase calls on the same
// symbol from multiple goroutines; the Contest Controller drives it
// from a single ticker loop.
type Aggregator struct {
	cache    *Cache
	prices   *PriceIndex
	hub      ports.Hub
	bySource map[domain.Timeframe][]CascadeRule
	cursor   map[cursorKey]int // per (symbol, source->target): next uncommitted total-emitted index
}

type cursorKey struct {
	symbol string
	source domain.Timeframe
	target domain.Timeframe
}

func NewAggregator(hub ports.Hub, cascade []CascadeRule) *Aggregator {
	bySource := make(map[domain.Timeframe][]CascadeRule)
	for _, rule := range cascade {
		bySource[rule.Source] = append(bySource[rule.Source], rule)
	}
	return &Aggregator{
		cache:    NewCache(),
		prices:   NewPriceIndex(),
		hub:      hub,
		bySource: bySource,
		cursor:   make(map[cursorKey]int),
	}
}

func (a *Aggregator) Cache() *Cache       { return a.cache }
func (a *Aggregator) Prices() *PriceIndex { return a.prices }

// BuildBase constructs and emits the base-interval candle for symbol at
// bucketStartSeconds from its ticks in the current window, or a
// carry-forward empty candle if ticks is empty.
func (a *Aggregator) BuildBase(symbol string, bucketStartSeconds int64, ticks []domain.Tick) domain.Candle {
	var c domain.Candle
	if len(ticks) == 0 {
		prevClose, ok := a.cache.Last(symbol, BaseTimeframe)
		seed := 0.0
		if ok {
			seed = prevClose.Close
		} else if px, have := a.prices.LastClose(symbol); have {
			seed = px
		}
		c = domain.Candle{
			Timeframe:          BaseTimeframe,
			Symbol:             symbol,
			BucketStartSeconds: bucketStartSeconds,
			Open:               seed,
			High:               seed,
			Low:                seed,
			Close:              seed,
			Volume:             0,
			TickCount:          0,
		}
	} else {
		high, low, vol := ticks[0].Close, ticks[0].Close, 0.0
		for _, t := range ticks {
			if t.Close > high {
				high = t.Close
			}
			if t.Close < low {
				low = t.Close
			}
			vol += t.Volume
		}
		c = domain.Candle{
			Timeframe:          BaseTimeframe,
			Symbol:             symbol,
			BucketStartSeconds: bucketStartSeconds,
			Open:               ticks[0].Close,
			High:               high,
			Low:                low,
			Close:              ticks[len(ticks)-1].Close,
			Volume:             vol,
			TickCount:          len(ticks),
		}
	}

	a.emit(c)
	return c
}

// emit appends the candle to the cache, updates the price index, publishes
// it, and then attempts the cascade for every timeframe sourced from it.
func (a *Aggregator) emit(c domain.Candle) {
	a.cache.Append(c)
	a.prices.Set(c.Symbol, c.Close)
	a.publish(c)
	metrics.IncCandle(string(c.Timeframe))
	a.cascadeFrom(c.Symbol, c.Timeframe)
}

func (a *Aggregator) publish(c domain.Candle) {
	if a.hub == nil {
		return
	}
	a.hub.Publish("candles:"+c.Symbol+":"+string(c.Timeframe), map[string]any{
		"symbol":    c.Symbol,
		"timeframe": c.Timeframe,
		"candle":    c,
		"is_new":    true,
	})
}

// cascadeFrom attempts every cascade rule whose source is sourceTf, after
// a new source candle has just been appended for symbol.
func (a *Aggregator) cascadeFrom(symbol string, sourceTf domain.Timeframe) {
	for _, rule := range a.bySource[sourceTf] {
		key := cursorKey{symbol, rule.Source, rule.Target}
		next, seen := a.cursor[key]
		if !seen {
			next = 0
		}
		total := a.cache.TotalEmitted(symbol, rule.Source)
		available := total - next
		if available < rule.Count {
			continue
		}
		window := a.cache.SliceFrom(symbol, rule.Source, next)
		if len(window) < rule.Count {
			continue
		}
		run := window[:rule.Count]
		if !contiguous(run, rule.IntervalSec) {
			// Gap detected: skip this aggregation window entirely and
			// never retroactively correct it. Advance the cursor by one,
			// past the run's first candle, so we don't spin on it forever.
			a.cursor[key] = next + 1
			continue
		}
		agg := aggregate(run, rule.Target)
		a.cursor[key] = next + rule.Count
		a.emit(agg)
	}
}

func contiguous(run []domain.Candle, intervalSec int64) bool {
	for i := 1; i < len(run); i++ {
		delta := float64(run[i].BucketStartSeconds-run[i-1].BucketStartSeconds) - float64(intervalSec)
		if math.Abs(delta) > gapTolerance {
			return false
		}
	}
	return true
}

func aggregate(run []domain.Candle, target domain.Timeframe) domain.Candle {
	high, low, vol := run[0].High, run[0].Low, 0.0
	tickCount := 0
	for _, c := range run {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		vol += c.Volume
		tickCount += c.TickCount
	}
	return domain.Candle{
		Timeframe:          target,
		Symbol:             run[0].Symbol,
		BucketStartSeconds: run[0].BucketStartSeconds,
		Open:               run[0].Open,
		High:               high,
		Low:                low,
		Close:              run[len(run)-1].Close,
		Volume:             vol,
		TickCount:          tickCount,
	}
}
