package candle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestCache_SnapshotReturnsOldestFirst(t *testing.T) {
	c := NewCache()
	for i := int64(0); i < 3; i++ {
		c.Append(domain.Candle{Symbol: "AAPL", Timeframe: "5s", BucketStartSeconds: i * 5, Close: float64(i)})
	}

	snap := c.Snapshot("AAPL", "5s", 10)
	require.Len(t, snap, 3)
	require.Equal(t, int64(0), snap[0].BucketStartSeconds)
	require.Equal(t, int64(10), snap[2].BucketStartSeconds)
}

func TestCache_SnapshotLimitsToMostRecent(t *testing.T) {
	c := NewCache()
	for i := int64(0); i < 5; i++ {
		c.Append(domain.Candle{Symbol: "AAPL", Timeframe: "5s", BucketStartSeconds: i * 5})
	}

	snap := c.Snapshot("AAPL", "5s", 2)
	require.Len(t, snap, 2)
	require.Equal(t, int64(15), snap[0].BucketStartSeconds)
	require.Equal(t, int64(20), snap[1].BucketStartSeconds)
}

func TestCache_TrimsAtMaxPerKeyAndTracksTotalEmitted(t *testing.T) {
	c := NewCache()
	for i := 0; i < maxPerKey+10; i++ {
		c.Append(domain.Candle{Symbol: "AAPL", Timeframe: "5s", BucketStartSeconds: int64(i)})
	}

	snap := c.Snapshot("AAPL", "5s", maxPerKey+10)
	require.Len(t, snap, maxPerKey)
	require.Equal(t, maxPerKey+10, c.TotalEmitted("AAPL", "5s"))
}

func TestCache_SliceFromClampsBeforeTrimmedHead(t *testing.T) {
	c := NewCache()
	for i := 0; i < maxPerKey+5; i++ {
		c.Append(domain.Candle{Symbol: "AAPL", Timeframe: "5s", BucketStartSeconds: int64(i)})
	}

	out := c.SliceFrom("AAPL", "5s", 0)
	require.Len(t, out, maxPerKey)
}

func TestCache_LastReportsMostRecent(t *testing.T) {
	c := NewCache()
	_, ok := c.Last("AAPL", "5s")
	require.False(t, ok)

	c.Append(domain.Candle{Symbol: "AAPL", Timeframe: "5s", Close: 42})
	last, ok := c.Last("AAPL", "5s")
	require.True(t, ok)
	require.Equal(t, 42.0, last.Close)
}
