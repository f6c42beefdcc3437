package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// TradeStore implements ports.TradeStore.
type TradeStore struct {
	db *sql.DB
}

func (s *TradeStore) Append(ctx context.Context, t domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, user, symbol, order_type, qty, px, total, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.User, t.Symbol, string(t.OrderType), t.Qty, t.Px, t.Total, t.Timestamp)
	if err != nil {
		return fmt.Errorf("storage.Append: insert trade: %w", err)
	}
	return nil
}

// ListForUser returns a 1-indexed page of user's trades, newest first.
// limit defaults to 50 and caps at 500.
func (s *TradeStore) ListForUser(ctx context.Context, user string, page, limit int) ([]domain.TradeRecord, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	offset := (page - 1) * limit

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, symbol, order_type, qty, px, total, timestamp
		FROM trades
		WHERE user = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, user, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage.ListForUser: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var orderType string
		if err := rows.Scan(&t.ID, &t.User, &t.Symbol, &orderType, &t.Qty, &t.Px, &t.Total, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("storage.ListForUser: scan: %w", err)
		}
		t.OrderType = domain.OrderType(orderType)
		out = append(out, t)
	}
	return out, nil
}

func (s *TradeStore) DeleteAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades`)
	if err != nil {
		return 0, fmt.Errorf("storage.DeleteAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
