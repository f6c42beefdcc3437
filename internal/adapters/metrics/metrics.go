// Package metrics exposes the contest engine's operational gauges and
// counters over Prometheus, served via promhttp on a dedicated listener
// separate from the main API.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

var (
	contestStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contest_status",
		Help: "Current contest lifecycle status: 0=IDLE 1=RUNNING 2=PAUSED 3=STOPPED.",
	})

	tradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_total",
		Help: "Trades executed, by order type.",
	}, []string{"order_type"})

	wsClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_clients_connected",
		Help: "Currently connected fan-out WS clients.",
	})

	candlesEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candles_emitted_total",
		Help: "Candles emitted by the aggregator, by timeframe.",
	}, []string{"timeframe"})

	leaderboardRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_refresh_total",
		Help: "Leaderboard refresh cycles completed.",
	})
)

func init() {
	prometheus.MustRegister(contestStatus, tradesTotal, wsClientsConnected, candlesEmittedTotal, leaderboardRefreshTotal)
}

// statusCode maps a domain.Status string to the gauge value documented above.
func statusCode(status string) float64 {
	switch status {
	case "IDLE":
		return 0
	case "RUNNING":
		return 1
	case "PAUSED":
		return 2
	case "STOPPED":
		return 3
	default:
		return -1
	}
}

// SetContestStatus records the controller's current lifecycle status.
func SetContestStatus(status string) { contestStatus.Set(statusCode(status)) }

// IncTrade records one executed trade of the given order type.
func IncTrade(orderType string) { tradesTotal.WithLabelValues(orderType).Inc() }

// SetWSClients records the fan-out hub's current connection count.
func SetWSClients(n int) { wsClientsConnected.Set(float64(n)) }

// IncCandle records one candle emission for the given timeframe.
func IncCandle(timeframe string) { candlesEmittedTotal.WithLabelValues(timeframe).Inc() }

// IncLeaderboardRefresh records one completed leaderboard refresh cycle.
func IncLeaderboardRefresh() { leaderboardRefreshTotal.Inc() }

// Serve starts the /metrics listener on addr and blocks until ctx is
// cancelled, then shuts down gracefully. An empty addr disables the
// listener entirely.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
