// Package config defines the top-level configuration for the dexter feed
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEXTER_* environment variables.
type Config struct {
	Feed     FeedConfig    `toml:"feed"`
	Stores   StoresConfig  `toml:"stores"`
	Scanner  ScannerConfig `toml:"scanner"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Mock     MockConfig    `toml:"mock"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// FeedConfig holds the upstream WebSocket endpoint and reconnection
// parameters.
type FeedConfig struct {
	URL                  string   `toml:"url"`
	Channels             []string `toml:"channels"`
	Pairs                []string `toml:"pairs"`
	ReconnectBaseDelay   duration `toml:"reconnect_base_delay"`
	ReconnectMaxDelay    duration `toml:"reconnect_max_delay"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
}

// StoresConfig holds the retention capacities for the in-memory stores.
type StoresConfig struct {
	Quotes        int `toml:"quotes"`
	Opportunities int `toml:"opportunities"`
	Alerts        int `toml:"alerts"`
	Depth         int `toml:"depth"`
	Executions    int `toml:"executions"`
}

// ScannerConfig holds the cross-exchange arbitrage detection parameters.
type ScannerConfig struct {
	// ProfitThreshold is the minimum gross spread in percent for an
	// opportunity to be emitted.
	ProfitThreshold float64 `toml:"profit_threshold"`
	// DefaultFee is the assumed round-trip fee in percent when neither
	// exchange has a recorded fee.
	DefaultFee    float64            `toml:"default_fee"`
	ExchangeFees  map[string]float64 `toml:"exchange_fees"`
	TradeNotional float64            `toml:"trade_notional"`
	Expiry        duration           `toml:"expiry"`
	MaxConfidence float64            `toml:"max_confidence"`
}

// RedisConfig holds Redis connection parameters for the opportunity fan-out.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// MockConfig holds the synthetic feed parameters used in mock mode.
type MockConfig struct {
	Pairs          []string           `toml:"pairs"`
	Exchanges      []string           `toml:"exchanges"`
	BasePrices     map[string]float64 `toml:"base_prices"`
	Interval       duration           `toml:"interval"`
	Volatility     float64            `toml:"volatility"`
	MevAlertChance float64            `toml:"mev_alert_chance"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			URL:                  "ws://localhost:3001/ws",
			Channels:             []string{"prices", "opportunities", "mev", "depth", "alpha"},
			ReconnectBaseDelay:   duration{3 * time.Second},
			ReconnectMaxDelay:    duration{30 * time.Second},
			MaxReconnectAttempts: 5,
		},
		Stores: StoresConfig{
			Quotes:        100,
			Opportunities: 20,
			Alerts:        10,
			Depth:         5,
			Executions:    20,
		},
		Scanner: ScannerConfig{
			ProfitThreshold: 0.1,
			DefaultFee:      0.1,
			ExchangeFees:    map[string]float64{},
			TradeNotional:   1000,
			Expiry:          duration{60 * time.Second},
			MaxConfidence:   95,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mock: MockConfig{
			Pairs:     []string{"SOL/USDC", "ETH/USDC", "BTC/USDC"},
			Exchanges: []string{"Raydium", "Orca", "Jupiter", "Binance"},
			BasePrices: map[string]float64{
				"SOL/USDC": 100.0,
				"ETH/USDC": 3000.0,
				"BTC/USDC": 50000.0,
			},
			Interval:       duration{time.Second},
			Volatility:     0.005,
			MevAlertChance: 0.1,
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live": true,
	"mock": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, mock)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if strings.ToLower(c.Mode) == "live" {
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url must not be empty in live mode")
		} else if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
			errs = append(errs, fmt.Sprintf("feed: url must use ws:// or wss://, got %q", c.Feed.URL))
		}
	}
	if c.Feed.ReconnectBaseDelay.Duration <= 0 {
		errs = append(errs, "feed: reconnect_base_delay must be positive")
	}
	if c.Feed.ReconnectMaxDelay.Duration < c.Feed.ReconnectBaseDelay.Duration {
		errs = append(errs, "feed: reconnect_max_delay must be >= reconnect_base_delay")
	}
	if c.Feed.MaxReconnectAttempts < 0 {
		errs = append(errs, "feed: max_reconnect_attempts must be >= 0")
	}

	// Stores
	for name, capacity := range map[string]int{
		"quotes":        c.Stores.Quotes,
		"opportunities": c.Stores.Opportunities,
		"alerts":        c.Stores.Alerts,
		"depth":         c.Stores.Depth,
		"executions":    c.Stores.Executions,
	} {
		if capacity < 1 {
			errs = append(errs, fmt.Sprintf("stores: %s must be >= 1, got %d", name, capacity))
		}
	}

	// Scanner
	if c.Scanner.ProfitThreshold <= 0 {
		errs = append(errs, "scanner: profit_threshold must be > 0")
	}
	if c.Scanner.DefaultFee < 0 {
		errs = append(errs, "scanner: default_fee must be >= 0")
	}
	for exchange, fee := range c.Scanner.ExchangeFees {
		if fee < 0 {
			errs = append(errs, fmt.Sprintf("scanner: exchange_fees[%s] must be >= 0, got %g", exchange, fee))
		}
	}
	if c.Scanner.TradeNotional <= 0 {
		errs = append(errs, "scanner: trade_notional must be > 0")
	}
	if c.Scanner.Expiry.Duration <= 0 {
		errs = append(errs, "scanner: expiry must be positive")
	}
	if c.Scanner.MaxConfidence <= 0 || c.Scanner.MaxConfidence > 100 {
		errs = append(errs, fmt.Sprintf("scanner: max_confidence must be in (0, 100], got %g", c.Scanner.MaxConfidence))
	}
	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Mock
	if strings.ToLower(c.Mode) == "mock" {
		if len(c.Mock.Pairs) == 0 {
			errs = append(errs, "mock: pairs must not be empty in mock mode")
		}
		if len(c.Mock.Exchanges) < 2 {
			errs = append(errs, "mock: at least two exchanges are required in mock mode")
		}
		if c.Mock.Interval.Duration <= 0 {
			errs = append(errs, "mock: interval must be positive")
		}
		if c.Mock.MevAlertChance < 0 || c.Mock.MevAlertChance > 1 {
			errs = append(errs, fmt.Sprintf("mock: mev_alert_chance must be in [0, 1], got %g", c.Mock.MevAlertChance))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
