package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the contest engine's full configuration.
type Config struct {
	Contest   ContestConfig   `yaml:"contest"`
	Symbols   []string        `yaml:"symbols"` // not read by contestserver: the admin start request names the symbols, or all discovered symbols are used
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles inbound trade submissions per user. A
// non-positive TradesPerSecond or Burst is replaced by the default (5 per
// second, burst 10) when the config is loaded.
type RateLimitConfig struct {
	TradesPerSecond float64 `yaml:"trades_per_second"`
	Burst           int     `yaml:"burst"`
}

// ContestConfig controls the replay/aggregation/scheduling knobs.
type ContestConfig struct {
	DurationMinutes        int     `yaml:"duration_minutes"`
	BaseIntervalSeconds    int64   `yaml:"base_interval_seconds"`
	WindowMinutes          int     `yaml:"window_minutes"`
	WindowBufferMinutes    int     `yaml:"window_buffer_minutes"`
	LeaderboardEveryNTicks int     `yaml:"leaderboard_every_n_ticks"`
	MinSpanHours           float64 `yaml:"min_span_hours"`
	MinSymbols             int     `yaml:"min_symbols"`
	MinSymbolSampleRows    int     `yaml:"min_symbol_sample_rows"`
}

// Duration converts DurationMinutes into a time.Duration for the
// contest controller.
func (c ContestConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// StorageConfig controls where data is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// ServerConfig controls the HTTP+WS listener.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	WSPath           string `yaml:"ws_path"`
	ClientSendBuffer int    `yaml:"client_send_buffer"`
}

// LogConfig controls logging level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MetricsConfig controls the separate /metrics listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the YAML config file at path and overlays a .env file, if
// present, for a small set of operational env vars.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overrides config values with environment variables
// when present.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// setDefaults fills unset fields with sensible defaults.
func setDefaults(cfg *Config) {
	if cfg.Contest.DurationMinutes <= 0 {
		cfg.Contest.DurationMinutes = 60
	}
	if cfg.Contest.BaseIntervalSeconds <= 0 {
		cfg.Contest.BaseIntervalSeconds = 5
	}
	if cfg.Contest.WindowMinutes <= 0 {
		cfg.Contest.WindowMinutes = 10
	}
	if cfg.Contest.WindowBufferMinutes <= 0 {
		cfg.Contest.WindowBufferMinutes = 2
	}
	if cfg.Contest.LeaderboardEveryNTicks <= 0 {
		cfg.Contest.LeaderboardEveryNTicks = 6
	}
	if cfg.Contest.MinSpanHours <= 0 {
		cfg.Contest.MinSpanHours = 4
	}
	if cfg.Contest.MinSymbols <= 0 {
		cfg.Contest.MinSymbols = 15
	}
	if cfg.Contest.MinSymbolSampleRows <= 0 {
		cfg.Contest.MinSymbolSampleRows = 20000
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "contest.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.WSPath == "" {
		cfg.Server.WSPath = "/ws"
	}
	if cfg.Server.ClientSendBuffer <= 0 {
		cfg.Server.ClientSendBuffer = 256
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.RateLimit.TradesPerSecond <= 0 {
		cfg.RateLimit.TradesPerSecond = 5
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
}
