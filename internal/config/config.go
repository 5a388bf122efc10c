package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Supported market data providers.
const (
	ProviderAlphaVantage = "alphavantage"
	ProviderYahoo        = "yahoo"
)

// Config holds all application configuration.
type Config struct {
	Provider struct {
		Name        string `yaml:"name"`
		APIKey      string `yaml:"api_key"`
		BaseURL     string `yaml:"base_url"`
		HistoryBars int    `yaml:"history_bars"`
	} `yaml:"provider"`
	Universe struct {
		BaseURL string   `yaml:"base_url"`
		Tickers []string `yaml:"tickers"` // overrides the exchange listings when set
	} `yaml:"universe"`
	Scan struct {
		Workers        int      `yaml:"workers"`
		Rules          []string `yaml:"rules"`
		SuppressOnSell bool     `yaml:"suppress_on_sell"`
		RSIOverbought  float64  `yaml:"rsi_overbought"`
		Timezone       string   `yaml:"timezone"`
	} `yaml:"scan"`
	Retry struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		Delay        time.Duration `yaml:"delay"`
		Backoff      string        `yaml:"backoff"`
		RequestDelay time.Duration `yaml:"request_delay"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"retry"`
	Output struct {
		Dir    string `yaml:"dir"`
		Prefix string `yaml:"prefix"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DailyCron  string `yaml:"daily_cron"` // empty runs once and exits
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// envOverrides lists the environment variables that take precedence over the YAML file.
type envOverrides struct {
	AlphaVantageKey  string `envconfig:"ALPHA_VANTAGE_KEY"`
	Provider         string `envconfig:"SCREENER_PROVIDER"`
	Workers          int    `envconfig:"SCREENER_WORKERS"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	SQLitePath       string `envconfig:"SQLITE_PATH"`
	ResultsDir       string `envconfig:"RESULTS_DIR"`
	DailyCron        string `envconfig:"DAILY_CRON"`
	RunOnStart       string `envconfig:"RUN_ON_START"`
	MetricsAddr      string `envconfig:"METRICS_ADDR"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	Proxy            string `envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then a .env file, then applies
// environment variable overrides and defaults. Missing files are not errors.
func Load(path string) (*Config, error) {
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

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.AlphaVantageKey != "" {
		c.Provider.APIKey = env.AlphaVantageKey
	}
	if env.Provider != "" {
		c.Provider.Name = env.Provider
	}
	if env.Workers != 0 {
		c.Scan.Workers = env.Workers
	}
	if env.TelegramBotToken != "" {
		c.Telegram.BotToken = env.TelegramBotToken
	}
	if env.TelegramChatID != "" {
		c.Telegram.ChatID = env.TelegramChatID
	}
	if env.SQLitePath != "" {
		c.Database.SQLitePath = env.SQLitePath
	}
	if env.ResultsDir != "" {
		c.Output.Dir = env.ResultsDir
	}
	if env.DailyCron != "" {
		c.Schedule.DailyCron = env.DailyCron
	}
	if env.RunOnStart == "true" {
		c.Schedule.RunOnStart = true
	}
	if env.MetricsAddr != "" {
		c.Metrics.Addr = env.MetricsAddr
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.Proxy != "" {
		c.Proxy = env.Proxy
	}
}

// applyDefaults fills unset fields. Pacing defaults depend on the provider:
// Alpha Vantage's free tier needs a single worker and ~15s between calls,
// Yahoo tolerates a wider pool with a short delay.
func (c *Config) applyDefaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderYahoo
		if c.Provider.APIKey != "" {
			c.Provider.Name = ProviderAlphaVantage
		}
	}
	if c.Provider.HistoryBars == 0 {
		c.Provider.HistoryBars = 63
	}

	switch c.Provider.Name {
	case ProviderAlphaVantage:
		setInt(&c.Scan.Workers, 1)
		setDuration(&c.Retry.RequestDelay, 15*time.Second)
		setDuration(&c.Retry.Delay, 20*time.Second)
		setString(&c.Retry.Backoff, "fixed")
	default:
		setInt(&c.Scan.Workers, 10)
		setDuration(&c.Retry.RequestDelay, 200*time.Millisecond)
		setDuration(&c.Retry.Delay, 2*time.Second)
		setString(&c.Retry.Backoff, "linear")
	}
	setInt(&c.Retry.MaxAttempts, 3)
	setDuration(&c.Retry.CacheTTL, 6*time.Hour)

	if len(c.Scan.Rules) == 0 {
		c.Scan.Rules = []string{"boll_oversold"}
	}
	if c.Scan.RSIOverbought == 0 {
		c.Scan.RSIOverbought = 80
	}
	setString(&c.Scan.Timezone, "America/New_York")
	setString(&c.Output.Dir, "results")
	setString(&c.Output.Prefix, "boll_oversold")
	setString(&c.Database.SQLitePath, "data/screener.db")
	setString(&c.Log.Level, "info")
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderAlphaVantage:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key (ALPHA_VANTAGE_KEY) is required for %s", ProviderAlphaVantage)
		}
	case ProviderYahoo:
	default:
		return fmt.Errorf("provider.name %q is not supported", c.Provider.Name)
	}
	if c.Scan.Workers < 1 || c.Scan.Workers > 10 {
		return fmt.Errorf("scan.workers must be between 1 and 10, got %d", c.Scan.Workers)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if c.Retry.Backoff != "fixed" && c.Retry.Backoff != "linear" {
		return fmt.Errorf("retry.backoff must be fixed or linear, got %q", c.Retry.Backoff)
	}
	if c.Provider.HistoryBars < 25 {
		return fmt.Errorf("provider.history_bars must be at least 25")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the market time zone used to resolve the target date.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scan.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scan.timezone: %w", err)
	}
	return loc, nil
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
