// Package replay implements the tick window loader: a sliding in-memory
// window of historical ticks per symbol, with a monotone per-symbol seek
// cursor, plus the replay clock that maps wall-clock elapsed time to a
// market-time offset.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
)

// Config holds the Loader's tunables.
type Config struct {
	WindowMinutes int     // nominal 10
	BufferMinutes int     // nominal 2
	PageSize      int
	MinSpanHours  float64 // nominal 4
	MinSymbols    int     // nominal 15
	MinSampleRows int     // nominal 20000
}

func DefaultConfig() Config {
	return Config{
		WindowMinutes: 10,
		BufferMinutes: 2,
		PageSize:      5000,
		MinSpanHours:  4,
		MinSymbols:    15,
		MinSampleRows: 20000,
	}
}

// Universe is what initialize() discovers about the data corpus.
type Universe struct {
	Symbols     []string
	DataStartMs int64
	DataEndMs   int64
}

// Loader holds the sliding window and per-symbol cursors. All mutating
// operations are serialized by mu; TicksInRange requires callers to invoke
// it with non-decreasing tLo per symbol within a window.
type Loader struct {
	store ports.TickStore
	cfg   Config

	mu            sync.Mutex
	window        map[string][]domain.Tick
	cursor        map[string]int
	windowStartMs int64
	windowMs      int64
	loadingNext   bool
}

func New(store ports.TickStore, cfg Config) *Loader {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5000
	}
	return &Loader{
		store:  store,
		cfg:    cfg,
		window: make(map[string][]domain.Tick),
		cursor: make(map[string]int),
	}
}

// Initialize discovers the symbol universe and data span. Fails if zero
// symbols are found or the span is below the configured minimum.
func (l *Loader) Initialize(ctx context.Context) (Universe, error) {
	symbols, startMs, endMs, err := l.store.SampleSymbols(ctx, l.cfg.MinSymbols, l.cfg.MinSampleRows)
	if err != nil {
		return Universe{}, fmt.Errorf("replay.Initialize: sample symbols: %w", err)
	}
	if len(symbols) == 0 {
		return Universe{}, fmt.Errorf("replay.Initialize: no symbols discovered in storage")
	}
	spanHours := float64(endMs-startMs) / 3_600_000.0
	if spanHours < l.cfg.MinSpanHours {
		return Universe{}, fmt.Errorf("replay.Initialize: data span %.2fh below minimum %.2fh", spanHours, l.cfg.MinSpanHours)
	}
	slog.Info("replay: initialized", "symbols", len(symbols), "data_start_ms", startMs, "data_end_ms", endMs, "span_hours", spanHours)
	return Universe{Symbols: symbols, DataStartMs: startMs, DataEndMs: endMs}, nil
}

// LoadWindow loads ticks for [startMs, startMs+window) in paged batches,
// sorts each symbol's slice ascending by timestamp, and resets cursors.
// A storage batch error aborts the load and is returned as-is; the
// contest controller treats this as non-retryable.
func (l *Loader) LoadWindow(ctx context.Context, startMs int64) error {
	windowMs := int64(l.cfg.WindowMinutes) * 60_000
	ticks, err := l.store.LoadWindow(ctx, startMs, windowMs, l.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("replay.LoadWindow: %w", err)
	}
	for symbol := range ticks {
		sort.Slice(ticks[symbol], func(i, j int) bool {
			return ticks[symbol][i].TimestampMs < ticks[symbol][j].TimestampMs
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.window = ticks
	l.cursor = make(map[string]int, len(ticks))
	l.windowStartMs = startMs
	l.windowMs = windowMs
	return nil
}

// TicksInRange advances the symbol's cursor past every tick with
// timestamp < tLo, then collects the contiguous run with timestamp < tHi,
// leaving the cursor one past the last tick returned. A symbol absent
// from the window (no ticks in range) yields an empty, valid slice.
func (l *Loader) TicksInRange(symbol string, tLo, tHi int64) []domain.Tick {
	l.mu.Lock()
	defer l.mu.Unlock()

	ticks := l.window[symbol]
	idx := l.cursor[symbol]

	for idx < len(ticks) && ticks[idx].TimestampMs < tLo {
		idx++
	}

	start := idx
	for idx < len(ticks) && ticks[idx].TimestampMs < tHi {
		idx++
	}

	l.cursor[symbol] = idx
	if start == idx {
		return nil
	}
	out := make([]domain.Tick, idx-start)
	copy(out, ticks[start:idx])
	return out
}

// MaybeLoadNext schedules a background load of the next window once
// currentMarketMs is within the configured buffer of the window's end.
// At most one load may be in flight; a second call while loading is a
// no-op.
func (l *Loader) MaybeLoadNext(ctx context.Context, currentMarketMs int64) {
	l.mu.Lock()
	windowEnd := l.windowStartMs + l.windowMs
	bufferMs := int64(l.cfg.BufferMinutes) * 60_000
	shouldLoad := windowEnd-currentMarketMs <= bufferMs && !l.loadingNext
	if shouldLoad {
		l.loadingNext = true
	}
	nextStart := windowEnd
	l.mu.Unlock()

	if !shouldLoad {
		return
	}

	go func() {
		defer func() {
			l.mu.Lock()
			l.loadingNext = false
			l.mu.Unlock()
		}()
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := l.appendWindow(loadCtx, nextStart); err != nil {
			slog.Error("replay: background window load failed", "start_ms", nextStart, "err", err)
		}
	}()
}

// appendWindow loads the next window and merges it onto the tail of the
// current one, per symbol, so in-flight cursors into the current window
// stay valid while the next window's data becomes available.
func (l *Loader) appendWindow(ctx context.Context, startMs int64) error {
	windowMs := int64(l.cfg.WindowMinutes) * 60_000
	ticks, err := l.store.LoadWindow(ctx, startMs, windowMs, l.cfg.PageSize)
	if err != nil {
		return err
	}
	for symbol := range ticks {
		sort.Slice(ticks[symbol], func(i, j int) bool {
			return ticks[symbol][i].TimestampMs < ticks[symbol][j].TimestampMs
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for symbol, newTicks := range ticks {
		l.window[symbol] = append(l.window[symbol], newTicks...)
	}
	l.windowMs = (startMs + windowMs) - l.windowStartMs
	return nil
}
