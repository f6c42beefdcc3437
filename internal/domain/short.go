package domain

import "time"

// ShortLot is one open (or tombstoned) short lot. Lots are closed FIFO by
// OpenedAt on a buy-to-cover; inactive lots are retained only until the
// end-of-contest cleanup wipe.
type ShortLot struct {
	ID            string    `json:"id"`
	User          string    `json:"user"`
	Symbol        string    `json:"symbol"`
	Qty           int64     `json:"qty"`
	AvgShortPx    float64   `json:"avg_short_px"`
	OpenedAt      time.Time `json:"opened_at"`
	IsActive      bool      `json:"is_active"`
	CurrentPx     float64   `json:"current_px"`     // advisory mark, updated in bulk during revaluation
	UnrealizedPnL float64   `json:"unrealized_pnl"` // advisory mark, never a source of truth for P&L
}
