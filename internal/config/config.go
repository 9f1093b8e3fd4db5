package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

// IndexEntry is one configured index. Category is explicit; it is never
// inferred from the display name.
type IndexEntry struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Code     string `yaml:"code"`
}

// ProviderEntry is one candidate in a provider fallback list.
type ProviderEntry struct {
	Name              string        `yaml:"name"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryInterval     *time.Duration `yaml:"retry_interval"` // absent takes the default, 0s retries immediately
	RequestsPerSecond float64        `yaml:"requests_per_second"`
}

const defaultRetryInterval = 2 * time.Second

// Interval returns the wait between attempts of this provider.
func (p ProviderEntry) Interval() time.Duration {
	if p.RetryInterval == nil {
		return defaultRetryInterval
	}
	return *p.RetryInterval
}

// Config holds all application configuration.
type Config struct {
	StartDate string       `yaml:"start_date"`
	OutputDir string       `yaml:"output_dir"`
	Window    int          `yaml:"window"`
	Indices   []IndexEntry `yaml:"indices"`
	Providers struct {
		Domestic    []ProviderEntry `yaml:"domestic"`
		CrossBorder []ProviderEntry `yaml:"cross_border"`
	} `yaml:"providers"`
	Network struct {
		Timeout           time.Duration `yaml:"timeout"`
		Proxy             string        `yaml:"proxy"`
		UserAgent         string        `yaml:"user_agent"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		HistoryLimit      int           `yaml:"history_limit"`
	} `yaml:"network"`
	Batch struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"batch"`
	Render struct {
		Disabled bool    `yaml:"disabled"`
		WidthIn  float64 `yaml:"width_in"`
		HeightIn float64 `yaml:"height_in"`
		DPI      int     `yaml:"dpi"`
		FontPath string  `yaml:"font_path"`
	} `yaml:"render"`
	Database struct {
		Driver     string `yaml:"driver"` // sqlite, postgres or none
		SQLitePath string `yaml:"sqlite_path"`
		DSN        string `yaml:"dsn"`
	} `yaml:"database"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		MaxAge int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
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

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("START_DATE"); v != "" {
		cfg.StartDate = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Network.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StartDate == "" {
		c.StartDate = "2015-01-01"
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.Window == 0 {
		c.Window = model.DefaultWindow
	}
	if len(c.Providers.Domestic) == 0 {
		c.Providers.Domestic = []ProviderEntry{{Name: "eastmoney"}, {Name: "tencent"}, {Name: "sina"}}
	}
	if len(c.Providers.CrossBorder) == 0 {
		c.Providers.CrossBorder = []ProviderEntry{{Name: "eastmoney"}, {Name: "yahoo"}}
	}
	for _, list := range [][]ProviderEntry{c.Providers.Domestic, c.Providers.CrossBorder} {
		for i := range list {
			if list[i].MaxRetries == 0 {
				list[i].MaxRetries = 3
			}
			if list[i].RetryInterval == nil {
				d := defaultRetryInterval
				list[i].RetryInterval = &d
			}
		}
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = 30 * time.Second
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.Network.RequestsPerSecond == 0 {
		c.Network.RequestsPerSecond = 2
	}
	if c.Network.HistoryLimit == 0 {
		c.Network.HistoryLimit = 10000
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 1
	}
	if c.Render.WidthIn == 0 {
		c.Render.WidthIn = 12
	}
	if c.Render.HeightIn == 0 {
		c.Render.HeightIn = 6
	}
	if c.Render.DPI == 0 {
		c.Render.DPI = 300
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/index_deviation.db"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Asia/Shanghai"
	}
}

// Validate checks the loaded configuration. Every failure is a ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Indices) == 0 {
		return errs.NewConfigurationError(nil, "indices: at least one index is required")
	}
	if _, err := c.Specs(); err != nil {
		return err
	}
	if _, err := model.ParseDate(c.StartDate); err != nil {
		return errs.NewConfigurationError(err, "start_date %q", c.StartDate)
	}
	if c.Window < 1 {
		return errs.NewConfigurationError(nil, "window must be positive, got %d", c.Window)
	}
	for _, list := range [][]ProviderEntry{c.Providers.Domestic, c.Providers.CrossBorder} {
		for _, p := range list {
			if p.Name == "" {
				return errs.NewConfigurationError(nil, "providers: entry without name")
			}
			if p.MaxRetries < 1 {
				return errs.NewConfigurationError(nil, "providers.%s: max_retries must be >= 1", p.Name)
			}
			if p.Interval() < 0 {
				return errs.NewConfigurationError(nil, "providers.%s: retry_interval must not be negative", p.Name)
			}
		}
	}
	if c.Batch.Concurrency < 1 {
		return errs.NewConfigurationError(nil, "batch.concurrency must be >= 1")
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.DSN == "" {
			return errs.NewConfigurationError(nil, "database.dsn is required for postgres")
		}
	default:
		return errs.NewConfigurationError(nil, "database.driver %q is not supported", c.Database.Driver)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return errs.NewConfigurationError(nil, "telegram.chat_id is required with a bot token")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return errs.NewConfigurationError(err, "schedule.timezone")
	}
	return nil
}

// Specs converts the index entries into IndexSpecs.
func (c *Config) Specs() ([]model.IndexSpec, error) {
	specs := make([]model.IndexSpec, 0, len(c.Indices))
	for _, e := range c.Indices {
		cat, err := model.ParseCategory(e.Category)
		if err != nil {
			return nil, errs.NewConfigurationError(err, "index %q", e.Name)
		}
		specs = append(specs, model.IndexSpec{DisplayName: e.Name, Category: cat, SymbolCode: e.Code})
	}
	return specs, nil
}

// Start returns the parsed chart window start date.
func (c *Config) Start() time.Time {
	t, _ := model.ParseDate(c.StartDate)
	return t
}
