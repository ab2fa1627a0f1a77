package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "rotator-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "STORAGE_BACKEND", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"ALPACA_DATA_URL", "LOG_LEVEL", "BACKTEST_COMMISSION", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFull(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  backend: "sqlite"
  data_dir: "/tmp/rotator/data"
  sqlite_path: "/tmp/rotator/rotator.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
logging:
  level: "debug"
  format: "text"
universe:
  source: "static"
  symbols: ["SPY", "GLD"]
gather:
  start_date: "2010-01-01"
  rate_limit_per_min: 100
  max_attempts: 4
  retry_delay: 2s
  breaker_failures: 3
  breaker_cooldown: 1m
strategy:
  name: "momentum-rotation"
  momentum_min: 0.5
  momentum_max: 2.5
  max_assets: 2
  vol_short_months: 3
  vol_long_months: 12
backtest:
  start_date: "2010-01-31"
  end_date: "2020-12-31"
  initial_capital: 5000
  commission: 0.001
  risk_free_rate: 0.01
output:
  dir: "/tmp/rotator/out"
  csv: true
  parquet: true
  sqlite: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
	if cfg.Storage.SQLitePath != "/tmp/rotator/rotator.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/rotator/rotator.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "sip")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Universe --
	if got := strings.Join(cfg.Universe.Symbols, ","); got != "SPY,GLD" {
		t.Errorf("Universe.Symbols = %q, want %q", got, "SPY,GLD")
	}

	// -- Gather --
	if cfg.Gather.RetryDelay != 2*time.Second {
		t.Errorf("Gather.RetryDelay = %v, want 2s", cfg.Gather.RetryDelay)
	}
	if cfg.Gather.BreakerCooldown != time.Minute {
		t.Errorf("Gather.BreakerCooldown = %v, want 1m", cfg.Gather.BreakerCooldown)
	}
	if cfg.Gather.BreakerFailures != 3 {
		t.Errorf("Gather.BreakerFailures = %d, want 3", cfg.Gather.BreakerFailures)
	}

	// -- Strategy --
	if cfg.Strategy.MaxAssets != 2 {
		t.Errorf("Strategy.MaxAssets = %d, want 2", cfg.Strategy.MaxAssets)
	}
	if cfg.Strategy.VolShortMonths != 3 {
		t.Errorf("Strategy.VolShortMonths = %d, want 3", cfg.Strategy.VolShortMonths)
	}

	// -- Backtest --
	if cfg.Backtest.Commission != 0.001 {
		t.Errorf("Backtest.Commission = %f, want %f", cfg.Backtest.Commission, 0.001)
	}
	start, end := cfg.BacktestRange()
	if start.Format("2006-01-02") != "2010-01-31" || end.Format("2006-01-02") != "2020-12-31" {
		t.Errorf("BacktestRange = %s..%s", start, end)
	}

	// -- Output --
	if !cfg.Output.Parquet || !cfg.Output.SQLite {
		t.Errorf("Output = %+v, want parquet and sqlite enabled", cfg.Output)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "logging:\n  level: warn\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Strategy.MomentumMin != 0.7 || cfg.Strategy.MomentumMax != 3 {
		t.Errorf("momentum band = [%v, %v], want [0.7, 3]", cfg.Strategy.MomentumMin, cfg.Strategy.MomentumMax)
	}
	if cfg.Backtest.InitialCapital != 10000 || cfg.Backtest.Commission != 0.0025 {
		t.Errorf("Backtest = %+v, want capital 10000 commission 0.0025", cfg.Backtest)
	}
	if len(cfg.Universe.Symbols) != len(DefaultSymbols) {
		t.Errorf("Universe.Symbols has %d entries, want %d", len(cfg.Universe.Symbols), len(DefaultSymbols))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("BACKTEST_COMMISSION", "0.005")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Backtest.Commission != 0.005 {
		t.Errorf("Backtest.Commission = %v, want 0.005 (env override)", cfg.Backtest.Commission)
	}

	// The SDK variable wins over ALPACA_API_KEY.
	t.Setenv("APCA_API_KEY_ID", "sdk-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "sdk-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "sdk-key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.Storage.Backend = "csv" }, "storage.backend"},
		{"empty universe", func(c *Config) { c.Universe.Symbols = nil }, "universe.symbols"},
		{"bad source", func(c *Config) { c.Universe.Source = "remote" }, "universe.source"},
		{"no assets", func(c *Config) { c.Strategy.MaxAssets = 0 }, "max_assets"},
		{"short window", func(c *Config) { c.Strategy.VolShortMonths = 1 }, "volatility windows"},
		{"inverted band", func(c *Config) { c.Strategy.MomentumMin = 5 }, "momentum_min"},
		{"bad start", func(c *Config) { c.Backtest.StartDate = "May 2005" }, "backtest.start_date"},
		{"inverted range", func(c *Config) { c.Backtest.EndDate = "2000-01-31" }, "before start_date"},
		{"no capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, "initial_capital"},
		{"commission", func(c *Config) { c.Backtest.Commission = 1 }, "commission"},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadSampleConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join("..", "..", "config", "rotator.yaml"))
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if cfg.Strategy.Name != "momentum-rotation" || cfg.Strategy.MaxAssets != 3 {
		t.Errorf("Strategy = %+v", cfg.Strategy)
	}
	if len(cfg.Universe.Symbols) != len(DefaultSymbols) {
		t.Errorf("sample universe has %d symbols, want %d", len(cfg.Universe.Symbols), len(DefaultSymbols))
	}
	if cfg.Gather.BreakerCooldown != 30*time.Second {
		t.Errorf("Gather.BreakerCooldown = %v, want 30s", cfg.Gather.BreakerCooldown)
	}
}
