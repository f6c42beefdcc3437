package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// PortfolioStore implements ports.PortfolioStore.
type PortfolioStore struct {
	db *sql.DB
}

// Get loads user's portfolio, creating and persisting a freshly-seeded
// one on first contact.
func (s *PortfolioStore) Get(ctx context.Context, user string) (domain.Portfolio, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user, cash, holdings_json, realized_pnl, last_updated FROM portfolios WHERE user = ?`, user)

	var p domain.Portfolio
	var holdingsJSON string
	var lastUpdated sql.NullTime
	err := row.Scan(&p.User, &p.Cash, &holdingsJSON, &p.RealizedPnL, &lastUpdated)
	if err == sql.ErrNoRows {
		p = domain.NewPortfolio(user)
		if err := s.Save(ctx, p); err != nil {
			return domain.Portfolio{}, fmt.Errorf("storage.Get: seed new portfolio: %w", err)
		}
		return p, nil
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("storage.Get: scan: %w", err)
	}

	p.Holdings = make(map[string]domain.Holding)
	if err := json.Unmarshal([]byte(holdingsJSON), &p.Holdings); err != nil {
		return domain.Portfolio{}, fmt.Errorf("storage.Get: unmarshal holdings: %w", err)
	}
	if lastUpdated.Valid {
		p.LastUpdated = lastUpdated.Time
	}
	return p, nil
}

// Save upserts the portfolio row in full.
func (s *PortfolioStore) Save(ctx context.Context, p domain.Portfolio) error {
	holdings := p.Holdings
	if holdings == nil {
		holdings = map[string]domain.Holding{}
	}
	holdingsJSON, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("storage.Save: marshal holdings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (user, cash, holdings_json, realized_pnl, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user) DO UPDATE SET
			cash          = excluded.cash,
			holdings_json = excluded.holdings_json,
			realized_pnl  = excluded.realized_pnl,
			last_updated  = excluded.last_updated
	`, p.User, p.Cash, string(holdingsJSON), p.RealizedPnL, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("storage.Save: upsert: %w", err)
	}
	return nil
}

// ListAll returns every portfolio row, for the Leaderboard Builder.
func (s *PortfolioStore) ListAll(ctx context.Context) ([]domain.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user, cash, holdings_json, realized_pnl, last_updated FROM portfolios`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListAll: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		var holdingsJSON string
		var lastUpdated sql.NullTime
		if err := rows.Scan(&p.User, &p.Cash, &holdingsJSON, &p.RealizedPnL, &lastUpdated); err != nil {
			return nil, fmt.Errorf("storage.ListAll: scan: %w", err)
		}
		p.Holdings = make(map[string]domain.Holding)
		if err := json.Unmarshal([]byte(holdingsJSON), &p.Holdings); err != nil {
			return nil, fmt.Errorf("storage.ListAll: unmarshal holdings: %w", err)
		}
		if lastUpdated.Valid {
			p.LastUpdated = lastUpdated.Time
		}
		out = append(out, p)
	}
	return out, nil
}

// ResetAll reseeds every existing portfolio row to the starting cash:
// empty holdings, zero realized P&L. Runs on contest start and again
// during end-of-contest cleanup.
func (s *PortfolioStore) ResetAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE portfolios SET cash = ?, holdings_json = '{}', realized_pnl = 0, last_updated = ?
	`, domain.SeedCash, time.Now())
	if err != nil {
		return 0, fmt.Errorf("storage.ResetAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
