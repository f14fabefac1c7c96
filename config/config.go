package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete screener configuration
type Config struct {
	Dirs     DirsConfig     `json:"dirs" yaml:"dirs"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Workers  int            `json:"workers" yaml:"workers"`
	Tiingo   TiingoConfig   `json:"tiingo" yaml:"tiingo"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
}

// DirsConfig holds the data and configuration directories
type DirsConfig struct {
	Tickers          string `json:"tickers" yaml:"tickers"`
	Indicators       string `json:"indicators" yaml:"indicators"`
	Scans            string `json:"scans" yaml:"scans"`
	IndicatorConfigs string `json:"indicator_configs" yaml:"indicator_configs"`
	ScanConfigs      string `json:"scan_configs" yaml:"scan_configs"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Logger returns the logger configuration.
func (l LogConfig) Logger() logger.Config {
	return logger.Config{Level: l.Level, Format: l.Format, Output: l.Output}
}

// JournalConfig contains scan journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "none" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// TiingoConfig contains market data source parameters
type TiingoConfig struct {
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	Timeout    string `json:"timeout" yaml:"timeout"` // e.g. "30s"
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
}

// Key returns the API key, falling back to TIINGO_API_KEY.
func (t TiingoConfig) Key() string {
	if t.APIKey != "" {
		return t.APIKey
	}
	return os.Getenv("TIINGO_API_KEY")
}

// ParseTimeout converts the timeout string to time.Duration
func (t TiingoConfig) ParseTimeout() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(t.Timeout)
}

// ScheduleConfig describes the unattended runs of `screener watch`
type ScheduleConfig struct {
	Cron            string   `json:"cron,omitempty" yaml:"cron,omitempty"` // standard 5-field spec
	IndicatorConfig string   `json:"indicator_config,omitempty" yaml:"indicator_config,omitempty"`
	ScanList        string   `json:"scan_list,omitempty" yaml:"scan_list,omitempty"`
	Timeframes      []string `json:"timeframes,omitempty" yaml:"timeframes,omitempty"`
	Fundamentals    bool     `json:"fundamentals,omitempty" yaml:"fundamentals,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dirs.Tickers == "" {
		return fmt.Errorf("dirs.tickers is required")
	}
	if c.Dirs.Indicators == "" {
		return fmt.Errorf("dirs.indicators is required")
	}
	if c.Dirs.Scans == "" {
		return fmt.Errorf("dirs.scans is required")
	}
	if c.Dirs.IndicatorConfigs == "" {
		return fmt.Errorf("dirs.indicator_configs is required")
	}
	if c.Dirs.ScanConfigs == "" {
		return fmt.Errorf("dirs.scan_configs is required")
	}
	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	if c.Journal.Type != "none" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'none' or 'sqlite'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Tiingo.BaseURL == "" {
		return fmt.Errorf("tiingo.base_url is required")
	}
	if d, err := c.Tiingo.ParseTimeout(); err != nil || d < 0 {
		return fmt.Errorf("tiingo.timeout must be a positive duration")
	}
	if c.Tiingo.MaxRetries < 0 {
		return fmt.Errorf("tiingo.max_retries must not be negative")
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
		if c.Schedule.IndicatorConfig == "" && c.Schedule.ScanList == "" {
			return fmt.Errorf("schedule needs indicator_config or scan_list")
		}
	}
	for _, tf := range c.Schedule.Timeframes {
		if _, err := market.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("schedule.timeframes: %w", err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Dirs: DirsConfig{
			Tickers:          "data/tickers",
			Indicators:       "data/indicators",
			Scans:            "data/scans",
			IndicatorConfigs: "configs",
			ScanConfigs:      "configs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Tiingo: TiingoConfig{
			BaseURL:    "https://api.tiingo.com",
			Timeout:    "30s",
			MaxRetries: 3,
		},
	}
}
