package domain

import "time"

// Status is one of the four contest lifecycle states.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusRunning Status = "RUNNING"
	StatusPaused  Status = "PAUSED"
	StatusStopped Status = "STOPPED"
)

// ContestState is the single lifecycle record; exactly one non-IDLE
// instance exists at any time.
type ContestState struct {
	ID                 string             `json:"id"`
	Status             Status             `json:"status"`
	StartWallclock     time.Time          `json:"start_wallclock"`
	Duration           time.Duration      `json:"duration_ns"`
	Symbols            []string           `json:"symbols"`
	DataStartMs        int64              `json:"data_start_ms"`
	DataEndMs          int64              `json:"data_end_ms"`
	CompressionRatio   float64            `json:"compression_ratio"`
	CurrentLeaderboard []LeaderboardEntry `json:"current_leaderboard,omitempty"`
}

// MarketTimeAt returns the market-time offset, in ms since DataStartMs,
// for the given run duration. The controller passes k*baseSeconds for tick
// k (paused time is not counted), never a measured wall-clock interval, so
// scheduling jitter cannot drift the replay against the source data.
func (c ContestState) MarketTimeAt(elapsed time.Duration) int64 {
	return int64(elapsed.Seconds() * c.CompressionRatio * 1000)
}

// ContestResult is the append-only final-ranking record written by cleanup.
type ContestResult struct {
	ContestID         string             `json:"contest_id"`
	EndTime           time.Time          `json:"end_time"`
	FinalLeaderboard  []LeaderboardEntry `json:"final_leaderboard"`
	TotalParticipants int                `json:"total_participants"`
	Winner            string             `json:"winner"`
}

// CleanupSummary reports what the end-of-contest wipe actually did,
// including any per-substep errors; cleanup never aborts on error, it
// only records what went wrong so the controller can still reach STOPPED.
type CleanupSummary struct {
	ShortsSquaredOff int      `json:"shorts_squared_off"`
	TradesDeleted    int      `json:"trades_deleted"`
	ShortsDeleted    int      `json:"shorts_deleted"`
	PortfoliosReset  int      `json:"portfolios_reset"`
	Errors           []string `json:"errors,omitempty"`
}
