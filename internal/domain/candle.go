package domain

// Timeframe names a candle granularity, e.g. "5s", "30s", "1m", "3m", "5m".
type Timeframe string

// Candle is one OHLCV bar for a (symbol, timeframe) at a given bucket.
// BucketStartSeconds is market-time-independent: it counts real seconds
// since contest start at this timeframe's interval, so candle sequences
// stay aligned regardless of the replay compression ratio.
type Candle struct {
	Timeframe          Timeframe `json:"timeframe"`
	Symbol             string    `json:"symbol"`
	BucketStartSeconds int64     `json:"bucket_start_seconds"`
	Open               float64   `json:"open"`
	High               float64   `json:"high"`
	Low                float64   `json:"low"`
	Close              float64   `json:"close"`
	Volume             float64   `json:"volume"`
	TickCount          int       `json:"tick_count"`
}

// CarryForward reports whether this candle was synthesized from an empty
// tick window (TickCount == 0) rather than built from real ticks.
func (c Candle) CarryForward() bool { return c.TickCount == 0 }
