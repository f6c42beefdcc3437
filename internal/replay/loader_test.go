package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

type fakeTickStore struct {
	symbols     []string
	dataStartMs int64
	dataEndMs   int64
	sampleErr   error

	ticks map[string][]domain.Tick
}

func (f *fakeTickStore) SampleSymbols(ctx context.Context, minSymbols, minRows int) ([]string, int64, int64, error) {
	if f.sampleErr != nil {
		return nil, 0, 0, f.sampleErr
	}
	return f.symbols, f.dataStartMs, f.dataEndMs, nil
}

func (f *fakeTickStore) LoadWindow(ctx context.Context, startMs, windowMs int64, pageSize int) (map[string][]domain.Tick, error) {
	out := make(map[string][]domain.Tick)
	for symbol, all := range f.ticks {
		for _, t := range all {
			if t.TimestampMs >= startMs && t.TimestampMs < startMs+windowMs {
				out[symbol] = append(out[symbol], t)
			}
		}
	}
	return out, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinSpanHours = 1
	cfg.MinSymbols = 1
	return cfg
}

func TestLoader_Initialize_FailsBelowMinSpan(t *testing.T) {
	store := &fakeTickStore{symbols: []string{"AAPL"}, dataStartMs: 0, dataEndMs: 1000}
	l := New(store, testConfig())
	_, err := l.Initialize(context.Background())
	require.Error(t, err)
}

func TestLoader_Initialize_FailsWithNoSymbols(t *testing.T) {
	store := &fakeTickStore{dataStartMs: 0, dataEndMs: int64(2 * time.Hour / time.Millisecond)}
	l := New(store, testConfig())
	_, err := l.Initialize(context.Background())
	require.Error(t, err)
}

func TestLoader_Initialize_Succeeds(t *testing.T) {
	store := &fakeTickStore{symbols: []string{"AAPL", "TSLA"}, dataStartMs: 0, dataEndMs: int64(2 * time.Hour / time.Millisecond)}
	l := New(store, testConfig())
	universe, err := l.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "TSLA"}, universe.Symbols)
}

func TestLoader_TicksInRange_AdvancesCursorMonotonically(t *testing.T) {
	store := &fakeTickStore{
		ticks: map[string][]domain.Tick{
			"AAPL": {
				{Symbol: "AAPL", TimestampMs: 0, Close: 1},
				{Symbol: "AAPL", TimestampMs: 5000, Close: 2},
				{Symbol: "AAPL", TimestampMs: 10000, Close: 3},
			},
		},
	}
	cfg := testConfig()
	cfg.WindowMinutes = 10
	l := New(store, cfg)
	require.NoError(t, l.LoadWindow(context.Background(), 0))

	first := l.TicksInRange("AAPL", 0, 5000)
	require.Len(t, first, 1)
	require.Equal(t, 1.0, first[0].Close)

	second := l.TicksInRange("AAPL", 5000, 11000)
	require.Len(t, second, 2)
	require.Equal(t, 2.0, second[0].Close)
	require.Equal(t, 3.0, second[1].Close)
}

func TestLoader_TicksInRange_EmptyForSymbolWithNoTicks(t *testing.T) {
	store := &fakeTickStore{ticks: map[string][]domain.Tick{}}
	l := New(store, testConfig())
	require.NoError(t, l.LoadWindow(context.Background(), 0))
	require.Empty(t, l.TicksInRange("AAPL", 0, 5000))
}
