package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Trading  TradingConfig  `yaml:"trading"`
}

type LogConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Development bool   `yaml:"development"` // console encoder, stacktraces
}

type BacktestConfig struct {
	StartDate          string  `yaml:"start_date"` // YYYY-MM-DD
	EndDate            string  `yaml:"end_date"`
	InitialCapital     float64 `yaml:"initial_capital"`
	CommissionRate     float64 `yaml:"commission_rate"`
	SlippageRate       float64 `yaml:"slippage_rate"`
	CheckpointInterval int     `yaml:"checkpoint_interval"` // days between saves
	CheckpointDir      string  `yaml:"checkpoint_dir"`
	MaxRunAttempts     int     `yaml:"max_run_attempts"`
	RunRetryDelay      string  `yaml:"run_retry_delay"` // e.g. "5s"
	RiskFreeRate       float64 `yaml:"risk_free_rate"`
}

type DataConfig struct {
	Universe       []string     `yaml:"universe"`
	HistoryLength  int          `yaml:"history_length"`
	Period         string       `yaml:"period"`
	CachePath      string       `yaml:"cache_path"` // sqlite file; empty disables the cache
	FetchAttempts  int          `yaml:"fetch_attempts"`
	FetchRetryDelay string      `yaml:"fetch_retry_delay"`
	Source         SourceConfig `yaml:"source"`
}

type SourceConfig struct {
	Type    string `yaml:"type"` // "http" or "file"
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // falls back to MARKET_API_KEY
	Path    string `yaml:"path"`    // dataset JSON for the file source
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type TradingConfig struct {
	TradingHours []string `yaml:"trading_hours"` // "HH:MM-HH:MM" windows
	PollInterval string   `yaml:"poll_interval"`
	MaxPositions int      `yaml:"max_positions"`
	RiskLimit    float64  `yaml:"risk_limit"` // fraction of cash per entry
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config and applies defaults, but does not validate
// it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a config with every default applied and no file read.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Backtest.StartDate == "" {
		c.Backtest.StartDate = "2023-01-01"
	}
	if c.Backtest.EndDate == "" {
		c.Backtest.EndDate = "2023-12-31"
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 1000000
	}
	if c.Backtest.CommissionRate == 0 {
		c.Backtest.CommissionRate = 0.001
	}
	if c.Backtest.SlippageRate == 0 {
		c.Backtest.SlippageRate = 0.0005
	}
	if c.Backtest.CheckpointInterval == 0 {
		c.Backtest.CheckpointInterval = 5
	}
	if c.Backtest.CheckpointDir == "" {
		c.Backtest.CheckpointDir = "checkpoints"
	}
	if c.Backtest.MaxRunAttempts == 0 {
		c.Backtest.MaxRunAttempts = 3
	}
	if c.Backtest.RunRetryDelay == "" {
		c.Backtest.RunRetryDelay = "5s"
	}
	if c.Backtest.RiskFreeRate == 0 {
		c.Backtest.RiskFreeRate = 0.03
	}
	if c.Data.HistoryLength == 0 {
		c.Data.HistoryLength = 60
	}
	if c.Data.Period == "" {
		c.Data.Period = "1d"
	}
	if c.Data.FetchAttempts == 0 {
		c.Data.FetchAttempts = 2
	}
	if c.Data.FetchRetryDelay == "" {
		c.Data.FetchRetryDelay = "1s"
	}
	if c.Data.Source.APIKey == "" {
		c.Data.Source.APIKey = os.Getenv("MARKET_API_KEY")
	}
	if len(c.Trading.TradingHours) == 0 {
		c.Trading.TradingHours = []string{"09:30-11:30", "13:00-15:00"}
	}
	if c.Trading.PollInterval == "" {
		c.Trading.PollInterval = "1m"
	}
	if c.Trading.MaxPositions == 0 {
		c.Trading.MaxPositions = 5
	}
	if c.Trading.RiskLimit == 0 {
		c.Trading.RiskLimit = 0.1
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	if len(c.Data.Universe) == 0 {
		return errors.New("data.universe is required")
	}
	start, end, err := c.Backtest.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("backtest.end_date %s is before start_date %s",
			c.Backtest.EndDate, c.Backtest.StartDate)
	}
	if c.Backtest.InitialCapital <= 0 {
		return errors.New("backtest.initial_capital must be > 0")
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.SlippageRate < 0 {
		return errors.New("backtest commission/slippage rates must be >= 0")
	}
	if c.Backtest.CheckpointInterval < 1 {
		return errors.New("backtest.checkpoint_interval must be >= 1")
	}
	if _, err := time.ParseDuration(c.Backtest.RunRetryDelay); err != nil {
		return fmt.Errorf("backtest.run_retry_delay invalid: %w", err)
	}
	if _, err := time.ParseDuration(c.Data.FetchRetryDelay); err != nil {
		return fmt.Errorf("data.fetch_retry_delay invalid: %w", err)
	}
	if c.Data.HistoryLength < 1 {
		return errors.New("data.history_length must be >= 1")
	}
	switch c.Data.Source.Type {
	case "", "http", "file":
	default:
		return fmt.Errorf("data.source.type %q not supported", c.Data.Source.Type)
	}
	return nil
}

// DateRange parses the configured start/end dates.
func (b BacktestConfig) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse(model.DateFormat, b.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("backtest.start_date invalid: %w", err)
	}
	end, err = time.Parse(model.DateFormat, b.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("backtest.end_date invalid: %w", err)
	}
	return start, end, nil
}

// InitialCapitalDecimal converts the configured capital to decimal.
func (b BacktestConfig) InitialCapitalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.InitialCapital)
}

// CommissionRateDecimal converts the configured rate to decimal.
func (b BacktestConfig) CommissionRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.CommissionRate)
}

// SlippageRateDecimal converts the configured rate to decimal.
func (b BacktestConfig) SlippageRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.SlippageRate)
}

// RunRetryDelayDuration returns the parsed run retry delay.
func (b BacktestConfig) RunRetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(b.RunRetryDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// FetchRetryDelayDuration returns the parsed fetch retry delay.
func (d DataConfig) FetchRetryDelayDuration() time.Duration {
	dur, err := time.ParseDuration(d.FetchRetryDelay)
	if err != nil {
		return time.Second
	}
	return dur
}

// PollIntervalDuration returns the parsed live poll interval.
func (t TradingConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(t.PollInterval)
	if err != nil {
		return time.Minute
	}
	return d
}
