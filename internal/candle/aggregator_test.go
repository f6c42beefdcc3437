package candle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestAggregator_BuildBase_FromTicks(t *testing.T) {
	agg := NewAggregator(nil, nil)

	ticks := []domain.Tick{
		{Symbol: "AAPL", Close: 100, Volume: 5},
		{Symbol: "AAPL", Close: 105, Volume: 3},
		{Symbol: "AAPL", Close: 98, Volume: 2},
	}
	c := agg.BuildBase("AAPL", 0, ticks)

	require.Equal(t, 100.0, c.Open)
	require.Equal(t, 105.0, c.High)
	require.Equal(t, 98.0, c.Low)
	require.Equal(t, 98.0, c.Close)
	require.Equal(t, 10.0, c.Volume)
	require.Equal(t, 3, c.TickCount)

	px, ok := agg.Prices().LastClose("AAPL")
	require.True(t, ok)
	require.Equal(t, 98.0, px)
}

func TestAggregator_BuildBase_CarriesForwardWhenNoTicks(t *testing.T) {
	agg := NewAggregator(nil, nil)

	agg.BuildBase("AAPL", 0, []domain.Tick{{Symbol: "AAPL", Close: 150}})
	empty := agg.BuildBase("AAPL", 5, nil)

	require.Equal(t, 150.0, empty.Open)
	require.Equal(t, 150.0, empty.High)
	require.Equal(t, 150.0, empty.Low)
	require.Equal(t, 150.0, empty.Close)
	require.Zero(t, empty.Volume)
	require.Zero(t, empty.TickCount)
}

func TestAggregator_CascadesAfterEnoughSourceCandles(t *testing.T) {
	cascade := []CascadeRule{{Source: "5s", Target: "30s", Count: 6, IntervalSec: 5}}
	agg := NewAggregator(nil, cascade)

	for i := int64(0); i < 6; i++ {
		agg.BuildBase("AAPL", i*5, []domain.Tick{{Symbol: "AAPL", Close: 100 + float64(i)}})
	}

	cascaded := agg.Cache().Snapshot("AAPL", "30s", 10)
	require.Len(t, cascaded, 1)
	require.Equal(t, 100.0, cascaded[0].Open)
	require.Equal(t, 105.0, cascaded[0].Close)
	require.Equal(t, domain.Timeframe("30s"), cascaded[0].Timeframe)
}

func TestAggregator_SkipsCascadeOnDiscontiguousRun(t *testing.T) {
	cascade := []CascadeRule{{Source: "5s", Target: "30s", Count: 2, IntervalSec: 5}}
	agg := NewAggregator(nil, cascade)

	agg.BuildBase("AAPL", 0, []domain.Tick{{Symbol: "AAPL", Close: 100}})
	agg.BuildBase("AAPL", 50, []domain.Tick{{Symbol: "AAPL", Close: 101}}) // gap > tolerance

	require.Empty(t, agg.Cache().Snapshot("AAPL", "30s", 10))
}
