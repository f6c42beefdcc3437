package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/contestengine/config"
	"github.com/alejandrodnm/contestengine/internal/adapters/httpapi"
	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
	"github.com/alejandrodnm/contestengine/internal/adapters/storage"
	"github.com/alejandrodnm/contestengine/internal/candle"
	"github.com/alejandrodnm/contestengine/internal/contest"
	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/fanout"
	"github.com/alejandrodnm/contestengine/internal/replay"
	"github.com/alejandrodnm/contestengine/internal/trading"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("contestserver starting",
		"config", *configPath,
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Metrics.Addr,
	)

	store, err := storage.Open(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	hub := fanout.NewHub(cfg.Server.ClientSendBuffer)
	aggregator := candle.NewAggregator(hub, candle.DefaultCascade())

	loaderCfg := replay.DefaultConfig()
	loaderCfg.WindowMinutes = cfg.Contest.WindowMinutes
	loaderCfg.BufferMinutes = cfg.Contest.WindowBufferMinutes
	loaderCfg.MinSpanHours = cfg.Contest.MinSpanHours
	loaderCfg.MinSymbols = cfg.Contest.MinSymbols
	loaderCfg.MinSampleRows = cfg.Contest.MinSymbolSampleRows
	loader := replay.New(store.Ticks(), loaderCfg)

	contestCfg := contest.DefaultConfig()
	contestCfg.BaseIntervalSeconds = cfg.Contest.BaseIntervalSeconds
	contestCfg.LeaderboardEveryTicks = cfg.Contest.LeaderboardEveryNTicks

	controller := contest.New(
		loader,
		aggregator,
		store.Contests(),
		store.Portfolios(),
		store.Shorts(),
		store.Trades(),
		hub,
		store.Users(),
		contestCfg,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := controller.Discover(ctx); err != nil {
		slog.Warn("contestserver: initial symbol discovery failed, will retry on /admin/contest/start", "err", err)
	}

	executor := trading.NewExecutor(store.Portfolios(), store.Shorts(), store.Trades(), aggregator.Prices(), hub, controller)
	limiter := trading.NewRateLimiter(cfg.RateLimit.TradesPerSecond, cfg.RateLimit.Burst)

	api := httpapi.New(
		controller,
		executor,
		aggregator.Cache(),
		aggregator.Prices(),
		store.Portfolios(),
		store.Shorts(),
		store.Trades(),
		store.Users(),
		hub,
		limiter,
		candle.DefaultCascade(),
		cfg.Server.WSPath,
		cfg.Contest.Duration(),
	)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.Router()}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
			slog.Error("metrics: listener exited with error", "err", err)
		}
	}()

	srvErr := make(chan error, 1)
	go func() {
		slog.Info("contestserver: listening", "addr", cfg.Server.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("contestserver: shutdown signal received")
	case err := <-srvErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("contestserver: listener exited with error", "err", err)
		}
	}

	shutdown(controller, srv)
	slog.Info("contestserver stopped cleanly")
}

// shutdown runs the contest controller's full stop/cleanup before the
// HTTP server shuts down, so a killed process never leaves a contest
// stuck RUNNING across a restart. Contests are not recovered after a
// crash; this only governs planned shutdown.
func shutdown(controller *contest.Controller, srv *http.Server) {
	state := controller.State()
	if state.Status == domain.StatusRunning || state.Status == domain.StatusPaused {
		slog.Info("contestserver: stopping active contest before shutdown", "contest_id", state.ID)
		if _, err := controller.Stop(context.Background()); err != nil {
			slog.Error("contestserver: contest stop during shutdown failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("contestserver: HTTP server shutdown error", "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
