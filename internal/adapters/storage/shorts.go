package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// ShortStore implements ports.ShortStore.
type ShortStore struct {
	db *sql.DB
}

func (s *ShortStore) Open(ctx context.Context, lot domain.ShortLot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO short_positions
			(id, user, symbol, qty, avg_short_px, opened_at, is_active, current_px, unrealized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, 0)
	`, lot.ID, lot.User, lot.Symbol, lot.Qty, lot.AvgShortPx, lot.OpenedAt, lot.CurrentPx)
	if err != nil {
		return fmt.Errorf("storage.Open: insert short lot: %w", err)
	}
	return nil
}

func (s *ShortStore) ActiveLotsFor(ctx context.Context, user, symbol string) ([]domain.ShortLot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, symbol, qty, avg_short_px, opened_at, is_active, current_px, unrealized_pnl
		FROM short_positions
		WHERE user = ? AND symbol = ? AND is_active = 1
		ORDER BY opened_at ASC
	`, user, symbol)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveLotsFor: query: %w", err)
	}
	defer rows.Close()
	return scanLots(rows)
}

func (s *ShortStore) ActiveLotsAll(ctx context.Context) ([]domain.ShortLot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, symbol, qty, avg_short_px, opened_at, is_active, current_px, unrealized_pnl
		FROM short_positions
		WHERE is_active = 1
		ORDER BY opened_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveLotsAll: query: %w", err)
	}
	defer rows.Close()
	return scanLots(rows)
}

// ListForUser returns every lot (across symbols) for user, ordered by
// OpenedAt ascending, optionally restricted to active lots for /shorts.
func (s *ShortStore) ListForUser(ctx context.Context, user string, activeOnly bool) ([]domain.ShortLot, error) {
	query := `
		SELECT id, user, symbol, qty, avg_short_px, opened_at, is_active, current_px, unrealized_pnl
		FROM short_positions
		WHERE user = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY opened_at ASC`

	rows, err := s.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("storage.ListForUser: query: %w", err)
	}
	defer rows.Close()
	return scanLots(rows)
}

func (s *ShortStore) DecrementQty(ctx context.Context, id string, by int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE short_positions SET qty = qty - ? WHERE id = ? AND is_active = 1`, by, id)
	if err != nil {
		return fmt.Errorf("storage.DecrementQty: %w", err)
	}
	return nil
}

func (s *ShortStore) Close(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE short_positions SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.Close: %w", err)
	}
	return nil
}

func (s *ShortStore) UpdateMarks(ctx context.Context, prices map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.UpdateMarks: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE short_positions
		SET current_px = ?, unrealized_pnl = (avg_short_px - ?) * qty
		WHERE symbol = ? AND is_active = 1
	`)
	if err != nil {
		return fmt.Errorf("storage.UpdateMarks: prepare: %w", err)
	}
	defer stmt.Close()

	for symbol, px := range prices {
		if _, err := stmt.ExecContext(ctx, px, px, symbol); err != nil {
			return fmt.Errorf("storage.UpdateMarks: update %s: %w", symbol, err)
		}
	}
	return tx.Commit()
}

func (s *ShortStore) DeleteAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM short_positions`)
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Next() bool
	Scan(dest ...any) error
}

func scanLots(rows scanner) ([]domain.ShortLot, error) {
	var out []domain.ShortLot
	for rows.Next() {
		var lot domain.ShortLot
		var isActive int
		var openedAt time.Time
		if err := rows.Scan(&lot.ID, &lot.User, &lot.Symbol, &lot.Qty, &lot.AvgShortPx,
			&openedAt, &isActive, &lot.CurrentPx, &lot.UnrealizedPnL); err != nil {
			return nil, fmt.Errorf("storage: scan short lot: %w", err)
		}
		lot.OpenedAt = openedAt
		lot.IsActive = isActive == 1
		out = append(out, lot)
	}
	return out, nil
}
