package domain

// Tick is one sample from the historical corpus replayed as the live
// market. In the source corpus every OHLC field collapses to the last
// traded price of the sample; Close is the field that matters, the others
// are carried through so storage and callers don't need a special case.
type Tick struct {
	Symbol      string
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}
