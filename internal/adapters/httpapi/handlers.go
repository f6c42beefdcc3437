package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alejandrodnm/contestengine/internal/candle"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
	defaultCandleLimit = 200
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.controller.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"contest_state":  state,
		"symbols_loaded": len(state.Symbols),
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	state := s.controller.State()
	symbols := state.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, symbols)
}

// timeframeDetail is one entry of the /timeframes response's details map.
type timeframeDetail struct {
	RealSeconds int64  `json:"real_seconds"`
	Label       string `json:"label"`
}

// handleTimeframes derives the available timeframes from the base
// interval and the aggregation cascade the server was wired with.
func (s *Server) handleTimeframes(w http.ResponseWriter, r *http.Request) {
	available := []domain.Timeframe{candle.BaseTimeframe}
	details := map[domain.Timeframe]timeframeDetail{
		candle.BaseTimeframe: {
			RealSeconds: candle.BaseIntervalSeconds,
			Label:       timeframeLabel(candle.BaseIntervalSeconds),
		},
	}
	for _, rule := range s.cascade {
		if _, ok := details[rule.Target]; ok {
			continue
		}
		secs := rule.IntervalSec * int64(rule.Count)
		details[rule.Target] = timeframeDetail{RealSeconds: secs, Label: timeframeLabel(secs)}
		available = append(available, rule.Target)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": available,
		"default":   candle.BaseTimeframe,
		"details":   details,
	})
}

func timeframeLabel(secs int64) string {
	if secs < 60 {
		return fmt.Sprintf("%d second", secs)
	}
	return fmt.Sprintf("%d minute", secs/60)
}

func (s *Server) handleCandlestick(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	timeframe := domain.Timeframe(r.URL.Query().Get("timeframe"))
	if timeframe == "" {
		timeframe = "5s"
	}
	limit := queryInt(r, "limit", defaultCandleLimit)
	candles := s.cache.Snapshot(symbol, timeframe, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"data":      candles,
	})
}

func (s *Server) handleContestState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := trading.Build(r.Context(), s.portfolios, s.shorts, s.prices, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	n := queryInt(r, "limit", len(entries))
	writeJSON(w, http.StatusOK, trading.Top(entries, n))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	p, err := s.portfolios.Get(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defaultTradesLimit)
	if limit <= 0 {
		limit = defaultTradesLimit
	}
	if limit > maxTradesLimit {
		limit = maxTradesLimit
	}
	trades, err := s.trades.ListForUser(r.Context(), user, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades, "page": page, "limit": limit})
}

func (s *Server) handleShorts(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	activeOnly := r.URL.Query().Get("active") != "false"
	lots, err := s.shorts.ListForUser(r.Context(), user, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shorts": lots})
}

type tradeRequest struct {
	Symbol      string           `json:"symbol"`
	OrderType   domain.OrderType `json:"order_type"`
	Quantity    int64            `json:"quantity"`
	CompanyName string           `json:"company_name"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if s.limiter != nil && !s.limiter.Allow(user) {
		writeError(w, domain.NewError(domain.ErrContestConflict, "trade submission rate limit exceeded"))
		return
	}

	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, domain.NewError(domain.ErrInvalidQty, "malformed trade request body"))
		return
	}

	result, err := s.executor.Execute(r.Context(), user, req.Symbol, req.OrderType, req.Quantity, req.CompanyName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trade": result.Trade, "portfolio": result.Portfolio})
}

// ---- admin ----

type startRequest struct {
	Symbols         []string `json:"symbols"`
	DurationMinutes int      `json:"duration_minutes"`
}

func (s *Server) handleAdminStart(w http.ResponseWriter, r *http.Request) {
	// The body is optional: an empty POST starts with all discovered
	// symbols and the default duration.
	var req startRequest
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		writeError(w, domain.NewError(domain.ErrInvalidQty, "malformed start request body"))
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = s.defaultDuration
	}
	if duration <= 0 {
		duration = 60 * time.Minute
	}
	state, err := s.controller.Start(r.Context(), req.Symbols, duration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "contest started",
		"contest_id": state.ID,
		"state":      state,
	})
}

func (s *Server) handleAdminStop(w http.ResponseWriter, r *http.Request) {
	_, err := s.controller.Stop(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cleanup": s.controller.LastCleanupSummary(),
	})
}

func (s *Server) handleAdminPause(w http.ResponseWriter, r *http.Request) {
	_, err := s.controller.Pause(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminResume(w http.ResponseWriter, r *http.Request) {
	_, err := s.controller.Resume(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminResetData(w http.ResponseWriter, r *http.Request) {
	universe, err := s.controller.Discover(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"details": map[string]any{
			"symbols":       universe.Symbols,
			"data_start_ms": universe.DataStartMs,
			"data_end_ms":   universe.DataEndMs,
		},
	})
}

// ---- websocket ----

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var initial []string
	if topics := r.URL.Query()["topic"]; len(topics) > 0 {
		initial = topics
	}
	s.hub.ServeWS(w, r, initial)
}
