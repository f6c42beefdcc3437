// Package httpapi implements the engine's REST surface plus the fan-out
// hub's WS upgrade endpoint, on a plain http.ServeMux.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/contestengine/internal/candle"
	"github.com/alejandrodnm/contestengine/internal/contest"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/fanout"
	"github.com/alejandrodnm/contestengine/internal/ports"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

// Server bundles every collaborator the REST/WS surface needs. It holds
// no mutable state of its own beyond startTime; everything else is
// delegated to the engine components it wires together.
type Server struct {
	controller *contest.Controller
	executor   *trading.Executor
	cache      ports.CandleCache
	prices     ports.PriceIndex
	portfolios ports.PortfolioStore
	shorts     ports.ShortStore
	trades     ports.TradeStore
	identity   ports.IdentityProvider
	hub        *fanout.Hub
	limiter    *trading.RateLimiter
	cascade    []candle.CascadeRule
	wsPath     string

	// defaultDuration is used when an admin start request omits one.
	defaultDuration time.Duration
	startTime       time.Time
}

func New(
	controller *contest.Controller,
	executor *trading.Executor,
	cache ports.CandleCache,
	prices ports.PriceIndex,
	portfolios ports.PortfolioStore,
	shorts ports.ShortStore,
	trades ports.TradeStore,
	identity ports.IdentityProvider,
	hub *fanout.Hub,
	limiter *trading.RateLimiter,
	cascade []candle.CascadeRule,
	wsPath string,
	defaultDuration time.Duration,
) *Server {
	return &Server{
		controller: controller,
		executor:   executor,
		cache:      cache,
		prices:     prices,
		portfolios: portfolios,
		shorts:     shorts,
		trades:     trades,
		identity:   identity,
		hub:        hub,
		limiter:    limiter,
		cascade:    cascade,
		wsPath:     wsPath,

		defaultDuration: defaultDuration,
		startTime:       time.Now(),
	}
}

// Router builds the *http.ServeMux wiring the full REST and WS surface.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /symbols", s.handleSymbols)
	mux.HandleFunc("GET /timeframes", s.handleTimeframes)
	mux.HandleFunc("GET /candlestick/{symbol}", s.handleCandlestick)
	mux.HandleFunc("GET /contest/state", s.handleContestState)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /portfolio", s.withUser(s.handlePortfolio))
	mux.HandleFunc("GET /trades", s.withUser(s.handleTrades))
	mux.HandleFunc("GET /shorts", s.withUser(s.handleShorts))
	mux.HandleFunc("POST /trade", s.withUser(s.handleTrade))
	mux.HandleFunc("POST /admin/contest/start", s.withAdmin(s.handleAdminStart))
	mux.HandleFunc("POST /admin/contest/stop", s.withAdmin(s.handleAdminStop))
	mux.HandleFunc("POST /admin/contest/pause", s.withAdmin(s.handleAdminPause))
	mux.HandleFunc("POST /admin/contest/resume", s.withAdmin(s.handleAdminResume))
	mux.HandleFunc("POST /admin/contest/reset-data", s.withAdmin(s.handleAdminResetData))

	mux.HandleFunc(s.wsPath, s.handleWS)

	return mux
}

// ---- auth ----

type ctxKey int

const (
	ctxEmail ctxKey = iota
	ctxAdmin
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, isAdmin, err := s.identity.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxEmail, email)
		ctx = context.WithValue(ctx, ctxAdmin, isAdmin)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.withUser(func(w http.ResponseWriter, r *http.Request) {
		if !r.Context().Value(ctxAdmin).(bool) {
			writeError(w, domain.NewError(domain.ErrForbidden, "admin role required"))
			return
		}
		next(w, r)
	})
}

func userFrom(r *http.Request) string {
	email, _ := r.Context().Value(ctxEmail).(string)
	return email
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("httpapi: failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		status = de.Kind.StatusHint()
		msg = de.Message
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
