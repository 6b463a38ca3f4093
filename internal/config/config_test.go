package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown mode")
	}
	if !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadFeedURL(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.URL = "http://localhost:3001/ws"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-ws scheme")
	}

	// Mock mode does not need a feed URL at all.
	cfg.Mode = "mock"
	cfg.Feed.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("mock mode should not require a feed url: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Stores.Quotes = 0
	cfg.Scanner.ProfitThreshold = -1
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"quotes", "profit_threshold", "port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected combined error to mention %s, got: %v", want, err)
		}
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "mock"
log_level = "debug"

[feed]
url = "wss://feed.example.com/ws"
reconnect_base_delay = "1s"

[scanner]
profit_threshold = 0.25

[stores]
quotes = 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Mode != "mock" || cfg.LogLevel != "debug" {
		t.Errorf("top-level fields not applied: mode=%s log_level=%s", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Feed.URL != "wss://feed.example.com/ws" {
		t.Errorf("feed url not applied: %s", cfg.Feed.URL)
	}
	if cfg.Feed.ReconnectBaseDelay.Duration != time.Second {
		t.Errorf("duration string not decoded: %s", cfg.Feed.ReconnectBaseDelay.Duration)
	}
	if cfg.Scanner.ProfitThreshold != 0.25 {
		t.Errorf("scanner threshold not applied: %g", cfg.Scanner.ProfitThreshold)
	}
	if cfg.Stores.Quotes != 500 {
		t.Errorf("store capacity not applied: %d", cfg.Stores.Quotes)
	}

	// Untouched sections keep their defaults.
	if cfg.Feed.ReconnectMaxDelay.Duration != 30*time.Second {
		t.Errorf("default reconnect max delay lost: %s", cfg.Feed.ReconnectMaxDelay.Duration)
	}
	if cfg.Stores.Opportunities != 20 {
		t.Errorf("default opportunities capacity lost: %d", cfg.Stores.Opportunities)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`mode = "live"`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEXTER_MODE", "mock")
	t.Setenv("DEXTER_FEED_RECONNECT_BASE_DELAY", "500ms")
	t.Setenv("DEXTER_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DEXTER_SCANNER_PROFIT_THRESHOLD", "0.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Mode != "mock" {
		t.Errorf("env mode override lost: %s", cfg.Mode)
	}
	if cfg.Feed.ReconnectBaseDelay.Duration != 500*time.Millisecond {
		t.Errorf("env duration override lost: %s", cfg.Feed.ReconnectBaseDelay.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("env slice override lost: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Scanner.ProfitThreshold != 0.5 {
		t.Errorf("env float override lost: %g", cfg.Scanner.ProfitThreshold)
	}
}
