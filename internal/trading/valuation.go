package trading

import (
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/ports"
)

// Revalue recomputes p.Derived against the current Price Index and the
// user's active short lots. shorts is every active lot for this user,
// across all symbols.
func Revalue(p *domain.Portfolio, prices ports.PriceIndex, shorts []domain.ShortLot) {
	var longMV, longUPnL float64
	for symbol, h := range p.Holdings {
		px, _ := prices.LastClose(symbol)
		longMV += float64(h.Qty) * px
		longUPnL += (px - h.AvgPx) * float64(h.Qty)
	}

	var shortLiability, shortUPnL float64
	for _, lot := range shorts {
		if !lot.IsActive {
			continue
		}
		px, _ := prices.LastClose(lot.Symbol)
		shortLiability += float64(lot.Qty) * px
		shortUPnL += (lot.AvgShortPx - px) * float64(lot.Qty)
	}

	p.Derived = domain.Derived{
		MarketValue:    longMV,
		ShortLiability: shortLiability,
		// Cash already holds the proceeds of every short sale, so
		// short_unrealized_pnl is added (mark-to-market of the open
		// obligation), never subtracted again as short_liability.
		UnrealizedPnL: longUPnL + shortUPnL,
		TotalWealth:   p.Cash + longMV + shortUPnL,
		TotalPnL:      longUPnL + shortUPnL + p.RealizedPnL,
	}
}
