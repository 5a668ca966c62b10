package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_API_BASE_URL", "DATA_API_KEY", "STREAM_URL", "STREAM_API_KEY",
		"CHART_SYMBOL", "CHART_PERIOD", "CHART_INTERVAL", "SQLITE_PATH", "HTTPS_PROXY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chart.Symbol != "AAPL" || cfg.Chart.Period != "1D" || cfg.Chart.Interval != "1min" {
		t.Errorf("chart defaults wrong: %+v", cfg.Chart)
	}
	if cfg.Schedule.RefreshEvery != "@every 1m" || cfg.Schedule.WatchdogEvery != "@every 10s" {
		t.Errorf("schedule defaults wrong: %+v", cfg.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_source:
  base_url: https://api.example.com
  api_key: file-key
chart:
  symbol: MSFT
  period: 1M
  interval: 1h
staleness:
  minute_seconds: 90
`)
	t.Setenv("DATA_API_KEY", "env-key")
	t.Setenv("CHART_SYMBOL", "NVDA")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataSource.BaseURL != "https://api.example.com" {
		t.Errorf("base url = %q", cfg.DataSource.BaseURL)
	}
	if cfg.DataSource.APIKey != "env-key" {
		t.Errorf("env must override file key, got %q", cfg.DataSource.APIKey)
	}
	if cfg.Chart.Symbol != "NVDA" {
		t.Errorf("env must override file symbol, got %q", cfg.Chart.Symbol)
	}
	if cfg.Chart.Period != "1M" || cfg.Chart.Interval != "1h" {
		t.Errorf("file values lost: %+v", cfg.Chart)
	}
	if cfg.Staleness.MinuteSeconds != 90 {
		t.Errorf("staleness override lost: %+v", cfg.Staleness)
	}
}

func TestValidateRejectsBadEnums(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Chart.Interval = "7min"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown interval must fail validation")
	}

	cfg.Chart.Interval = "1min"
	cfg.Chart.Period = "2D"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown period must fail validation")
	}

	cfg.Chart.Period = "1D"
	cfg.Chart.Symbol = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty symbol must fail validation")
	}
}

func TestThresholdOverrides(t *testing.T) {
	var cfg Config
	cfg.Staleness.MinuteSeconds = 120
	cfg.Staleness.DailyHours = 48

	fn := cfg.Thresholds()
	if got := fn(model.Interval1Min); got != 2*time.Minute {
		t.Errorf("1min threshold = %s, want 2m", got)
	}
	if got := fn(model.Interval1Day); got != 48*time.Hour {
		t.Errorf("1day threshold = %s, want 48h", got)
	}
	// Unset granularities fall back to the built-in policy.
	if got := fn(model.Interval5Min); got != 30*time.Minute {
		t.Errorf("5min threshold = %s, want default 30m", got)
	}
	if got := fn(model.Interval1H); got != 2*time.Hour {
		t.Errorf("1h threshold = %s, want default 2h", got)
	}
}
