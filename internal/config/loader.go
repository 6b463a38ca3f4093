package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXTER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators adjust deployments without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.URL, "DEXTER_FEED_URL")
	setStringSlice(&cfg.Feed.Channels, "DEXTER_FEED_CHANNELS")
	setStringSlice(&cfg.Feed.Pairs, "DEXTER_FEED_PAIRS")
	setDuration(&cfg.Feed.ReconnectBaseDelay, "DEXTER_FEED_RECONNECT_BASE_DELAY")
	setDuration(&cfg.Feed.ReconnectMaxDelay, "DEXTER_FEED_RECONNECT_MAX_DELAY")
	setInt(&cfg.Feed.MaxReconnectAttempts, "DEXTER_FEED_MAX_RECONNECT_ATTEMPTS")

	// ── Stores ──
	setInt(&cfg.Stores.Quotes, "DEXTER_STORES_QUOTES")
	setInt(&cfg.Stores.Opportunities, "DEXTER_STORES_OPPORTUNITIES")
	setInt(&cfg.Stores.Alerts, "DEXTER_STORES_ALERTS")
	setInt(&cfg.Stores.Depth, "DEXTER_STORES_DEPTH")
	setInt(&cfg.Stores.Executions, "DEXTER_STORES_EXECUTIONS")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.ProfitThreshold, "DEXTER_SCANNER_PROFIT_THRESHOLD")
	setFloat64(&cfg.Scanner.DefaultFee, "DEXTER_SCANNER_DEFAULT_FEE")
	setFloat64(&cfg.Scanner.TradeNotional, "DEXTER_SCANNER_TRADE_NOTIONAL")
	setDuration(&cfg.Scanner.Expiry, "DEXTER_SCANNER_EXPIRY")
	setFloat64(&cfg.Scanner.MaxConfidence, "DEXTER_SCANNER_MAX_CONFIDENCE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DEXTER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEXTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXTER_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DEXTER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DEXTER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DEXTER_SERVER_CORS_ORIGINS")

	// ── Mock ──
	setStringSlice(&cfg.Mock.Pairs, "DEXTER_MOCK_PAIRS")
	setStringSlice(&cfg.Mock.Exchanges, "DEXTER_MOCK_EXCHANGES")
	setDuration(&cfg.Mock.Interval, "DEXTER_MOCK_INTERVAL")
	setFloat64(&cfg.Mock.Volatility, "DEXTER_MOCK_VOLATILITY")
	setFloat64(&cfg.Mock.MevAlertChance, "DEXTER_MOCK_MEV_ALERT_CHANCE")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEXTER_MODE")
	setStr(&cfg.LogLevel, "DEXTER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
