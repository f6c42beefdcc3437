package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

func TestConsole_PrintLeaderboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleWriter(&buf).PrintLeaderboard(nil)
	require.Contains(t, buf.String(), "no leaderboard entries yet")
}

func TestConsole_PrintLeaderboard_RendersEntries(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleWriter(&buf).PrintLeaderboard([]domain.LeaderboardEntry{
		{Rank: 1, UserName: "alice", TotalWealth: 11000, ReturnPercent: 10, Cash: 5000, LongMarketValue: 6000},
	})

	out := buf.String()
	require.Contains(t, out, "alice")
	require.Contains(t, out, "11000.00")
	require.Contains(t, out, "10.00%")
}

func TestConsole_PrintContestState_Idle(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleWriter(&buf).PrintContestState(domain.ContestState{
		ID:      "c1",
		Status:  domain.StatusIdle,
		Symbols: []string{"AAPL", "TSLA"},
	})

	out := buf.String()
	require.Contains(t, out, "status: IDLE")
	require.Contains(t, out, "symbols discovered: 2")
}

func TestConsole_PrintContestState_Running(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	NewConsoleWriter(&buf).PrintContestState(domain.ContestState{
		ID:               "c2",
		Status:           domain.StatusRunning,
		StartWallclock:   start,
		Duration:         time.Hour,
		Symbols:          []string{"AAPL"},
		CompressionRatio: 6,
	})

	out := buf.String()
	require.Contains(t, out, "c2")
	require.Contains(t, out, "compression ratio:  6.00")
}
