package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// TickStore implements ports.TickStore.
type TickStore struct {
	db *sql.DB
}

// SampleSymbols scans at several offsets across the table to discover the
// symbol universe without bias from storage ordering, stopping once
// minSymbols distinct symbols are seen across minRows rows or the table
// is exhausted.
func (s *TickStore) SampleSymbols(ctx context.Context, minSymbols, minRows int) ([]string, int64, int64, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks`).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("storage.SampleSymbols: count: %w", err)
	}
	if total == 0 {
		return nil, 0, 0, nil
	}

	var dataStart, dataEnd int64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp_ms), MAX(timestamp_ms) FROM ticks`).Scan(&dataStart, &dataEnd); err != nil {
		return nil, 0, 0, fmt.Errorf("storage.SampleSymbols: span: %w", err)
	}

	const offsets = 8
	seen := make(map[string]struct{})
	rowsScanned := 0
	step := total / offsets
	if step == 0 {
		step = total
	}

	for offset := 0; offset < total && (len(seen) < minSymbols || rowsScanned < minRows); offset += step {
		rows, err := s.db.QueryContext(ctx,
			`SELECT DISTINCT symbol FROM (SELECT symbol FROM ticks ORDER BY rowid LIMIT ? OFFSET ?)`, step, offset)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("storage.SampleSymbols: sample at offset %d: %w", offset, err)
		}
		for rows.Next() {
			var symbol string
			if err := rows.Scan(&symbol); err != nil {
				rows.Close()
				return nil, 0, 0, fmt.Errorf("storage.SampleSymbols: scan: %w", err)
			}
			seen[symbol] = struct{}{}
		}
		rows.Close()
		rowsScanned += step
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	return symbols, dataStart, dataEnd, nil
}

// LoadWindow loads every tick in [startMs, startMs+windowMs) in pages of
// pageSize rows, grouped by symbol.
func (s *TickStore) LoadWindow(ctx context.Context, startMs, windowMs int64, pageSize int) (map[string][]domain.Tick, error) {
	if pageSize <= 0 {
		pageSize = 5000
	}
	endMs := startMs + windowMs
	out := make(map[string][]domain.Tick)

	offset := 0
	for {
		rows, err := s.db.QueryContext(ctx, `
			SELECT symbol, timestamp_ms, open, high, low, close, volume
			FROM ticks
			WHERE timestamp_ms >= ? AND timestamp_ms < ?
			ORDER BY timestamp_ms ASC
			LIMIT ? OFFSET ?`, startMs, endMs, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadWindow: query page at offset %d: %w", offset, err)
		}

		n := 0
		for rows.Next() {
			var t domain.Tick
			if err := rows.Scan(&t.Symbol, &t.TimestampMs, &t.Open, &t.High, &t.Low, &t.Close, &t.Volume); err != nil {
				rows.Close()
				return nil, fmt.Errorf("storage.LoadWindow: scan row: %w", err)
			}
			out[t.Symbol] = append(out[t.Symbol], t)
			n++
		}
		rows.Close()

		if n < pageSize {
			break
		}
		offset += pageSize
	}

	return out, nil
}
