package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestClock_MarketTimeMs_DerivesFromElapsedNotAccumulation(t *testing.T) {
	state := domain.ContestState{DataStartMs: 1_000, CompressionRatio: 60}
	clock := NewClock(state, func() time.Time { return time.Unix(0, 0) })

	require.Equal(t, int64(1_000), clock.MarketTimeMs(0))
	require.Equal(t, int64(1_000+60_000), clock.MarketTimeMs(time.Second))
	// Calling twice with the same elapsed duration must be identical;
	// guards against any implementation that accumulates ticker fires.
	require.Equal(t, clock.MarketTimeMs(time.Second), clock.MarketTimeMs(time.Second))
}

func TestClock_AutoStopAt_IsAbsoluteFromStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := domain.ContestState{StartWallclock: start, Duration: 30 * time.Minute}
	clock := NewClock(state, nil)

	require.Equal(t, start.Add(30*time.Minute), clock.AutoStopAt())
}

func TestClock_Expired(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := domain.ContestState{StartWallclock: start, Duration: time.Minute}

	before := NewClock(state, func() time.Time { return start.Add(30 * time.Second) })
	require.False(t, before.Expired())

	after := NewClock(state, func() time.Time { return start.Add(2 * time.Minute) })
	require.True(t, after.Expired())
}
