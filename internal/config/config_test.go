package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sample = `
start_date: "2018-01-01"
indices:
  - name: 港股-恒生指数
    category: cross_border
    code: HSI
  - name: A股-沪深300
    category: domestic
    code: sh000300
providers:
  domestic:
    - name: tencent
      max_retries: 5
      retry_interval: 500ms
`

func TestLoad_DefaultsAndYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.StartDate != "2018-01-01" || cfg.Window != model.DefaultWindow {
		t.Errorf("start/window = %s/%d", cfg.StartDate, cfg.Window)
	}
	d := cfg.Providers.Domestic
	if len(d) != 1 || d[0].Name != "tencent" || d[0].MaxRetries != 5 || d[0].Interval() != 500*time.Millisecond {
		t.Errorf("domestic providers = %+v", d)
	}
	c := cfg.Providers.CrossBorder
	if len(c) != 2 || c[0].Name != "eastmoney" || c[1].Name != "yahoo" {
		t.Errorf("cross-border defaults = %+v", c)
	}
	if c[0].MaxRetries != 3 || c[0].Interval() != 2*time.Second {
		t.Errorf("retry defaults = %+v", c[0])
	}
	if cfg.Batch.Concurrency != 1 || cfg.Database.Driver != "sqlite" || cfg.Render.DPI != 300 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	specs, err := cfg.Specs()
	if err != nil {
		t.Fatal(err)
	}
	if specs[0].Category != model.CategoryCrossBorder || specs[1].SymbolCode != "sh000300" {
		t.Errorf("specs = %+v", specs)
	}
	if !cfg.Start().Equal(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %s", cfg.Start())
	}
}

func TestLoad_ZeroRetryIntervalKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
indices:
  - name: A股-沪深300
    category: domestic
    code: sh000300
providers:
  domestic:
    - name: eastmoney
      retry_interval: 0s
    - name: sina
`))
	if err != nil {
		t.Fatal(err)
	}
	d := cfg.Providers.Domestic
	if d[0].Interval() != 0 {
		t.Errorf("explicit 0s became %s", d[0].Interval())
	}
	if d[1].Interval() != 2*time.Second {
		t.Errorf("absent interval = %s, want default", d[1].Interval())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero interval must validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("START_DATE", "2020-06-01")
	t.Setenv("OUTPUT_DIR", "/tmp/charts")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BATCH_CONCURRENCY", "3")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StartDate != "2020-06-01" || cfg.OutputDir != "/tmp/charts" || cfg.Log.Level != "debug" || cfg.Batch.Concurrency != 3 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.StartDate != "2015-01-01" {
		t.Errorf("StartDate = %s", cfg.StartDate)
	}
	// no indices configured
	if err := cfg.Validate(); !errs.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "indices: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad category", func(c *Config) { c.Indices[0].Category = "nasdaq" }},
		{"bad start date", func(c *Config) { c.StartDate = "01/01/2015" }},
		{"zero retries", func(c *Config) { c.Providers.Domestic[0].MaxRetries = -1 }},
		{"unnamed provider", func(c *Config) { c.Providers.CrossBorder[0].Name = "" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"bad concurrency", func(c *Config) { c.Batch.Concurrency = -2 }},
		{"telegram without chat", func(c *Config) { c.Telegram.BotToken = "t"; c.Telegram.ChatID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sample))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errs.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}
