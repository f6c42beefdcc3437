package candle

import (
	"sync"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// maxPerKey bounds the cache to the last 1,000 candles per (symbol,
// timeframe); older candles are trimmed from the head.
const maxPerKey = 1000

type cacheKey struct {
	symbol    string
	timeframe domain.Timeframe
}

// Cache is the (symbol, timeframe) -> ordered candle sequence store. The
// Aggregator is its sole writer; reads come from the HTTP historical
// endpoint and new WS subscribers wanting an initial snapshot, so every
// read hands out a copy.
//
// trimmed counts how many candles have fallen off the head of each
// sequence, so callers tracking a monotonic "last consumed index" (the
// cascade's per-source-timeframe cursor) can convert that global index
// into a local slice offset even after trimming.
type Cache struct {
	mu      sync.RWMutex
	data    map[cacheKey][]domain.Candle
	trimmed map[cacheKey]int
}

func NewCache() *Cache {
	return &Cache{
		data:    make(map[cacheKey][]domain.Candle),
		trimmed: make(map[cacheKey]int),
	}
}

// Append adds a newly-produced candle to its sequence, trimming from the
// head if the bound is exceeded.
func (c *Cache) Append(candle domain.Candle) {
	key := cacheKey{candle.Symbol, candle.Timeframe}
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := append(c.data[key], candle)
	if len(seq) > maxPerKey {
		over := len(seq) - maxPerKey
		seq = seq[over:]
		c.trimmed[key] += over
	}
	c.data[key] = seq
}

// Last returns the most recent candle for (symbol, timeframe), if any.
func (c *Cache) Last(symbol string, timeframe domain.Timeframe) (domain.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seq := c.data[cacheKey{symbol, timeframe}]
	if len(seq) == 0 {
		return domain.Candle{}, false
	}
	return seq[len(seq)-1], true
}

// Snapshot returns up to limit most-recent candles, oldest first, as a
// defensive copy.
func (c *Cache) Snapshot(symbol string, timeframe domain.Timeframe, limit int) []domain.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seq := c.data[cacheKey{symbol, timeframe}]
	if limit <= 0 || limit > len(seq) {
		limit = len(seq)
	}
	start := len(seq) - limit
	out := make([]domain.Candle, limit)
	copy(out, seq[start:])
	return out
}

// TotalEmitted returns the monotonic count of candles ever appended for
// (symbol, timeframe), including ones since trimmed from the cache. The
// cascade's per-source cursor is expressed in this space so trimming
// never invalidates it.
func (c *Cache) TotalEmitted(symbol string, timeframe domain.Timeframe) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := cacheKey{symbol, timeframe}
	return c.trimmed[key] + len(c.data[key])
}

// SliceFrom returns a defensive copy of every candle at or after the
// given monotonic index (see TotalEmitted). If the index falls before
// the oldest retained candle, the retained head is returned instead:
// that index range was already consumed in an earlier aggregation.
func (c *Cache) SliceFrom(symbol string, timeframe domain.Timeframe, fromTotal int) []domain.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := cacheKey{symbol, timeframe}
	seq := c.data[key]
	local := fromTotal - c.trimmed[key]
	if local < 0 {
		local = 0
	}
	if local >= len(seq) {
		return nil
	}
	out := make([]domain.Candle, len(seq)-local)
	copy(out, seq[local:])
	return out
}
