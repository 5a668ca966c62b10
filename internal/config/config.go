package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
	"github.com/nighthawk909/ChartSense-sub000/internal/watchdog"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Stream struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"stream"`
	Chart struct {
		Symbol   string `yaml:"symbol"`
		Period   string `yaml:"period"`
		Interval string `yaml:"interval"`
		Overlays []int  `yaml:"overlays"` // moving-average periods
	} `yaml:"chart"`
	Schedule struct {
		RefreshEvery  string `yaml:"refresh_every"`
		WatchdogEvery string `yaml:"watchdog_every"`
	} `yaml:"schedule"`
	Staleness struct {
		MinuteSeconds   int `yaml:"minute_seconds"`   // 1min bars
		IntradayMinutes int `yaml:"intraday_minutes"` // 5min-30min bars
		HourlyMinutes   int `yaml:"hourly_minutes"`
		DailyHours      int `yaml:"daily_hours"`
	} `yaml:"staleness"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. Stream credentials are optional: their absence is a
// valid polling-only configuration, not an error.
func Load(path string) (*Config, error) {
	// .env feeds the environment overrides below; a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_API_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		cfg.Stream.APIKey = v
	}
	if v := os.Getenv("CHART_SYMBOL"); v != "" {
		cfg.Chart.Symbol = v
	}
	if v := os.Getenv("CHART_PERIOD"); v != "" {
		cfg.Chart.Period = v
	}
	if v := os.Getenv("CHART_INTERVAL"); v != "" {
		cfg.Chart.Interval = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Chart.Symbol == "" {
		cfg.Chart.Symbol = "AAPL"
	}
	if cfg.Chart.Period == "" {
		cfg.Chart.Period = string(model.Period1D)
	}
	if cfg.Chart.Interval == "" {
		cfg.Chart.Interval = string(model.Interval1Min)
	}
	if cfg.Schedule.RefreshEvery == "" {
		cfg.Schedule.RefreshEvery = "@every 1m"
	}
	if cfg.Schedule.WatchdogEvery == "" {
		cfg.Schedule.WatchdogEvery = "@every 10s"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and enumerations parse.
func (c *Config) Validate() error {
	if c.Chart.Symbol == "" {
		return fmt.Errorf("chart.symbol is required")
	}
	if _, err := model.ParsePeriod(c.Chart.Period); err != nil {
		return fmt.Errorf("chart.period: %w", err)
	}
	if _, err := model.ParseInterval(c.Chart.Interval); err != nil {
		return fmt.Errorf("chart.interval: %w", err)
	}
	for _, p := range c.Chart.Overlays {
		if p <= 0 {
			return fmt.Errorf("chart.overlays: period must be positive, got %d", p)
		}
	}
	return nil
}

// Thresholds builds the staleness policy, applying any configured
// per-granularity overrides on top of the watchdog defaults.
func (c *Config) Thresholds() func(model.Interval) time.Duration {
	s := c.Staleness
	return func(iv model.Interval) time.Duration {
		switch {
		case iv == model.Interval1Min && s.MinuteSeconds > 0:
			return time.Duration(s.MinuteSeconds) * time.Second
		case iv.Intraday() && iv != model.Interval1Min && iv != model.Interval1H && s.IntradayMinutes > 0:
			return time.Duration(s.IntradayMinutes) * time.Minute
		case iv == model.Interval1H && s.HourlyMinutes > 0:
			return time.Duration(s.HourlyMinutes) * time.Minute
		case !iv.Intraday() && s.DailyHours > 0:
			return time.Duration(s.DailyHours) * time.Hour
		}
		return watchdog.ThresholdFor(iv)
	}
}
