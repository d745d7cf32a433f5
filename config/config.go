// Package config loads the engine's runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Venue   VenueConfig   `json:"venue" yaml:"venue"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// AccountConfig seeds the trading account.
type AccountConfig struct {
	Equity float64 `json:"equity" yaml:"equity"`
}

// VenueConfig shapes the paper venue.
type VenueConfig struct {
	Cash          float64            `json:"cash" yaml:"cash"`
	DefaultMinQty float64            `json:"default_min_qty" yaml:"default_min_qty"`
	MinQty        map[string]float64 `json:"min_qty,omitempty" yaml:"min_qty,omitempty"`
}

// FeedConfig selects the market data source. Type is "binance" or "csv".
type FeedConfig struct {
	Type      string   `json:"type" yaml:"type"`
	Symbols   []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Timeframe string   `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	URL       string   `json:"url,omitempty" yaml:"url,omitempty"`
	Path      string   `json:"path,omitempty" yaml:"path,omitempty"` // csv replay file
}

// StoreConfig locates the strategy database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig selects trade journaling. Type is "sqlite", "csv" or
// "none".
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`

	// SnapshotCron schedules periodic equity snapshots, cron syntax.
	// Empty disables them.
	SnapshotCron string `json:"snapshot_cron,omitempty" yaml:"snapshot_cron,omitempty"`
}

// MetricsConfig exposes the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
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

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Account.Equity <= 0 {
		return fmt.Errorf("account.equity must be positive")
	}
	if c.Venue.Cash < 0 || c.Venue.DefaultMinQty < 0 {
		return fmt.Errorf("venue values must be non-negative")
	}

	switch c.Feed.Type {
	case "binance":
		if len(c.Feed.Symbols) == 0 {
			return fmt.Errorf("feed.symbols required for binance feed")
		}
		if c.Feed.Timeframe == "" {
			return fmt.Errorf("feed.timeframe required for binance feed")
		}
	case "csv":
		if c.Feed.Path == "" {
			return fmt.Errorf("feed.path required for csv feed")
		}
	default:
		return fmt.Errorf("feed.type must be 'binance' or 'csv'")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv journal")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{Equity: 10000},
		Venue: VenueConfig{
			Cash:          100000,
			DefaultMinQty: 0.0001,
		},
		Feed: FeedConfig{
			Type:      "binance",
			Symbols:   []string{"BTCUSDT"},
			Timeframe: "1m",
		},
		Store: StoreConfig{Path: "./strategies.db"},
		Journal: JournalConfig{
			Type:         "sqlite",
			DBPath:       "./journal.db",
			SnapshotCron: "@every 1m",
		},
		Metrics: MetricsConfig{Addr: ":9105"},
	}
}
