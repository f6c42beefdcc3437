// Package storage implements every internal/ports storage interface on
// top of SQLite, pure-Go and CGo-free via modernc.org/sqlite.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticks (
    symbol       TEXT    NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    open         REAL    NOT NULL,
    high         REAL    NOT NULL,
    low          REAL    NOT NULL,
    close        REAL    NOT NULL,
    volume       REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, timestamp_ms);

CREATE TABLE IF NOT EXISTS portfolios (
    user          TEXT PRIMARY KEY,
    cash          REAL NOT NULL,
    holdings_json TEXT NOT NULL DEFAULT '{}',
    realized_pnl  REAL NOT NULL DEFAULT 0,
    last_updated  DATETIME
);

CREATE TABLE IF NOT EXISTS short_positions (
    id            TEXT PRIMARY KEY,
    user          TEXT    NOT NULL,
    symbol        TEXT    NOT NULL,
    qty           INTEGER NOT NULL,
    avg_short_px  REAL    NOT NULL,
    opened_at     DATETIME NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    current_px    REAL    NOT NULL DEFAULT 0,
    unrealized_pnl REAL   NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_shorts_user_symbol ON short_positions(user, symbol, is_active);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    user        TEXT    NOT NULL,
    symbol      TEXT    NOT NULL,
    order_type  TEXT    NOT NULL,
    qty         INTEGER NOT NULL,
    px          REAL    NOT NULL,
    total       REAL    NOT NULL,
    timestamp   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user_ts ON trades(user, timestamp DESC);

CREATE TABLE IF NOT EXISTS contest_state (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    contest_id          TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'IDLE',
    start_wallclock     DATETIME,
    duration_ms         INTEGER NOT NULL DEFAULT 0,
    symbols_json        TEXT NOT NULL DEFAULT '[]',
    data_start_ms       INTEGER NOT NULL DEFAULT 0,
    data_end_ms         INTEGER NOT NULL DEFAULT 0,
    compression_ratio   REAL NOT NULL DEFAULT 0,
    leaderboard_json    TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS users (
    auth_id TEXT PRIMARY KEY,
    email   TEXT NOT NULL UNIQUE,
    name    TEXT NOT NULL DEFAULT '',
    role    TEXT NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS contest_results (
    contest_id          TEXT PRIMARY KEY,
    end_time            DATETIME NOT NULL,
    final_leaderboard_json TEXT NOT NULL,
    total_participants  INTEGER NOT NULL,
    winner              TEXT
);
`

// SQLiteStorage opens the shared *sql.DB and hands out one small adapter
// struct per ports.*Store interface, each sharing the same db handle.
// ports.ShortStore and ports.TradeStore both declare a DeleteAll method,
// so one receiver type cannot implement both; one struct per port keeps
// every adapter a direct implementation of its interface.
type SQLiteStorage struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies the schema, and
// restricts the pool to a single connection; SQLite is single-writer.
func Open(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO contest_state (id) VALUES (1)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: seed contest_state: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is live.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Ticks returns the ports.TickStore adapter.
func (s *SQLiteStorage) Ticks() *TickStore { return &TickStore{db: s.db} }

// Portfolios returns the ports.PortfolioStore adapter.
func (s *SQLiteStorage) Portfolios() *PortfolioStore { return &PortfolioStore{db: s.db} }

// Shorts returns the ports.ShortStore adapter.
func (s *SQLiteStorage) Shorts() *ShortStore { return &ShortStore{db: s.db} }

// Trades returns the ports.TradeStore adapter.
func (s *SQLiteStorage) Trades() *TradeStore { return &TradeStore{db: s.db} }

// Contests returns the ports.ContestStore adapter.
func (s *SQLiteStorage) Contests() *ContestStore { return &ContestStore{db: s.db} }

// Users returns the ports.IdentityProvider / trading.Identity adapter.
func (s *SQLiteStorage) Users() *UserStore { return &UserStore{db: s.db} }
