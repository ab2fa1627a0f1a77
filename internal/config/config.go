package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the rotator tools.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Universe UniverseConfig `yaml:"universe"`
	Gather   GatherConfig   `yaml:"gather"`
	Strategy StrategyConfig `yaml:"strategy"`
	Backtest BacktestConfig `yaml:"backtest"`
	Output   OutputConfig   `yaml:"output"`
}

// Storage holds paths for data persistence. Backend selects where monthly
// prices are read from: "parquet" or "sqlite".
type Storage struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UniverseConfig lists the tradable assets. Source "static" uses Symbols in
// order; "store" uses every symbol present in the price store.
type UniverseConfig struct {
	Source  string   `yaml:"source"`
	Symbols []string `yaml:"symbols"`
}

// GatherConfig controls the monthly price ingestion job.
type GatherConfig struct {
	StartDate       string        `yaml:"start_date"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// StrategyConfig holds the selector name and its parameters.
type StrategyConfig struct {
	Name           string  `yaml:"name"`
	MomentumMin    float64 `yaml:"momentum_min"`
	MomentumMax    float64 `yaml:"momentum_max"`
	MaxAssets      int     `yaml:"max_assets"`
	VolShortMonths int     `yaml:"vol_short_months"`
	VolLongMonths  int     `yaml:"vol_long_months"`
}

// BacktestConfig defines the simulated horizon and cost model.
type BacktestConfig struct {
	StartDate      string  `yaml:"start_date"`
	EndDate        string  `yaml:"end_date"`
	InitialCapital float64 `yaml:"initial_capital"`
	Commission     float64 `yaml:"commission"`
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
}

// OutputConfig selects where result tables are written.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	CSV     bool   `yaml:"csv"`
	Parquet bool   `yaml:"parquet"`
	SQLite  bool   `yaml:"sqlite"`
}

// DefaultSymbols is the ETF universe of the reference backtest.
var DefaultSymbols = []string{
	"SPY", "QQQ", "GLD", "EEM", "FXI", "XLF", "XLC",
	"IEUR", "XLY", "VEA", "XLRE", "XLB", "IVE", "IVW",
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Backend:    "parquet",
			DataDir:    "data",
			SQLitePath: "data/rotator.db",
		},
		Alpaca: Alpaca{
			Feed: "iex",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Universe: UniverseConfig{
			Source:  "static",
			Symbols: append([]string(nil), DefaultSymbols...),
		},
		Gather: GatherConfig{
			StartDate:       "2005-01-01",
			RateLimitPerMin: 200,
			MaxAttempts:     3,
			RetryDelay:      time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Strategy: StrategyConfig{
			Name:           "momentum-rotation",
			MomentumMin:    0.7,
			MomentumMax:    3,
			MaxAssets:      3,
			VolShortMonths: 4,
			VolLongMonths:  12,
		},
		Backtest: BacktestConfig{
			StartDate:      "2005-05-31",
			EndDate:        "2025-04-30",
			InitialCapital: 10000,
			Commission:     0.0025,
			RiskFreeRate:   0.02,
		},
		Output: OutputConfig{
			Dir: "out",
			CSV: true,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default(), applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("BACKTEST_COMMISSION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.Commission = f
		}
	}

	// Standard Alpaca env vars take highest priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "parquet", "sqlite":
	default:
		return fmt.Errorf("storage.backend %q: want parquet or sqlite", c.Storage.Backend)
	}

	switch c.Universe.Source {
	case "static":
		if len(c.Universe.Symbols) == 0 {
			return fmt.Errorf("universe.symbols is empty")
		}
	case "store":
	default:
		return fmt.Errorf("universe.source %q: want static or store", c.Universe.Source)
	}

	s := c.Strategy
	if s.MaxAssets < 1 {
		return fmt.Errorf("strategy.max_assets must be >= 1, got %d", s.MaxAssets)
	}
	if s.VolShortMonths < 2 || s.VolLongMonths < 2 {
		return fmt.Errorf("strategy volatility windows must be >= 2 months, got %d/%d",
			s.VolShortMonths, s.VolLongMonths)
	}
	if s.MomentumMin > s.MomentumMax {
		return fmt.Errorf("strategy.momentum_min %v > momentum_max %v", s.MomentumMin, s.MomentumMax)
	}

	b := c.Backtest
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return fmt.Errorf("backtest.start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return fmt.Errorf("backtest.end_date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("backtest.end_date %s before start_date %s", b.EndDate, b.StartDate)
	}
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %v", b.InitialCapital)
	}
	if b.Commission < 0 || b.Commission >= 1 {
		return fmt.Errorf("backtest.commission must be in [0, 1), got %v", b.Commission)
	}

	if _, err := time.Parse("2006-01-02", c.Gather.StartDate); err != nil {
		return fmt.Errorf("gather.start_date: %w", err)
	}
	return nil
}

// BacktestRange returns the parsed backtest start and end dates. It assumes
// Validate has passed.
func (c *Config) BacktestRange() (time.Time, time.Time) {
	start, _ := time.Parse("2006-01-02", c.Backtest.StartDate)
	end, _ := time.Parse("2006-01-02", c.Backtest.EndDate)
	return start, end
}
