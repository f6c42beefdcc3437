package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// ContestStore implements ports.ContestStore. contest_state is a single
// row (id=1) updated in place; contest_results is append-only.
type ContestStore struct {
	db *sql.DB
}

func (s *ContestStore) SaveState(ctx context.Context, st domain.ContestState) error {
	symbolsJSON, err := json.Marshal(st.Symbols)
	if err != nil {
		return fmt.Errorf("storage.SaveState: marshal symbols: %w", err)
	}
	leaderboardJSON, err := json.Marshal(st.CurrentLeaderboard)
	if err != nil {
		return fmt.Errorf("storage.SaveState: marshal leaderboard: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE contest_state SET
			contest_id        = ?,
			status            = ?,
			start_wallclock   = ?,
			duration_ms       = ?,
			symbols_json      = ?,
			data_start_ms     = ?,
			data_end_ms       = ?,
			compression_ratio = ?,
			leaderboard_json  = ?
		WHERE id = 1
	`, st.ID, string(st.Status), st.StartWallclock, st.Duration.Milliseconds(),
		string(symbolsJSON), st.DataStartMs, st.DataEndMs, st.CompressionRatio, string(leaderboardJSON))
	if err != nil {
		return fmt.Errorf("storage.SaveState: update: %w", err)
	}
	return nil
}

func (s *ContestStore) LoadState(ctx context.Context) (domain.ContestState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT contest_id, status, start_wallclock, duration_ms, symbols_json,
		       data_start_ms, data_end_ms, compression_ratio, leaderboard_json
		FROM contest_state WHERE id = 1
	`)

	var st domain.ContestState
	var status, symbolsJSON, leaderboardJSON string
	var durationMs int64
	var startWallclock sql.NullTime
	if err := row.Scan(&st.ID, &status, &startWallclock, &durationMs, &symbolsJSON,
		&st.DataStartMs, &st.DataEndMs, &st.CompressionRatio, &leaderboardJSON); err != nil {
		return domain.ContestState{}, fmt.Errorf("storage.LoadState: scan: %w", err)
	}

	st.Status = domain.Status(status)
	st.Duration = time.Duration(durationMs) * time.Millisecond
	if startWallclock.Valid {
		st.StartWallclock = startWallclock.Time
	}
	if err := json.Unmarshal([]byte(symbolsJSON), &st.Symbols); err != nil {
		return domain.ContestState{}, fmt.Errorf("storage.LoadState: unmarshal symbols: %w", err)
	}
	if err := json.Unmarshal([]byte(leaderboardJSON), &st.CurrentLeaderboard); err != nil {
		return domain.ContestState{}, fmt.Errorf("storage.LoadState: unmarshal leaderboard: %w", err)
	}
	return st, nil
}

// SaveResult appends one final-ranking row. The table is append-only:
// a duplicate contest_id is an error, never an overwrite.
func (s *ContestStore) SaveResult(ctx context.Context, r domain.ContestResult) error {
	leaderboardJSON, err := json.Marshal(r.FinalLeaderboard)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: marshal leaderboard: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contest_results (contest_id, end_time, final_leaderboard_json, total_participants, winner)
		VALUES (?, ?, ?, ?, ?)
	`, r.ContestID, r.EndTime, string(leaderboardJSON), r.TotalParticipants, r.Winner)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: insert: %w", err)
	}
	return nil
}
