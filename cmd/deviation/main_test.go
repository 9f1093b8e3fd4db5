package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"IndexDeviation/internal/config"
	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
	"IndexDeviation/internal/recorder"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("../../configs/config.yaml")
	if err != nil {
		t.Fatalf("load sample config: %v", err)
	}
	return cfg
}

func TestSetup_SampleConfig(t *testing.T) {
	specs, err := setup(testConfig(t), "")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(specs) != 9 || specs[0].SymbolCode != "HSI" || specs[0].Category != model.CategoryCrossBorder {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestSetup_IndexFilter(t *testing.T) {
	specs, err := setup(testConfig(t), "A股-沪深300, A股-上证指数")
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 || specs[0].SymbolCode != "sh000300" {
		t.Errorf("unexpected selection: %+v", specs)
	}

	_, err = setup(testConfig(t), "A股-不存在")
	if !errs.IsConfiguration(err) || exitCode(err) != 1 {
		t.Errorf("unknown index must be a configuration error, got %v", err)
	}
}

func TestBuildPipeline(t *testing.T) {
	cfg := testConfig(t)
	p, err := buildPipeline(cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(p.Candidates(model.CategoryDomestic)); got != 3 {
		t.Errorf("domestic candidates = %d, want 3", got)
	}
	cross := p.Candidates(model.CategoryCrossBorder)
	if len(cross) != 2 || cross[1].Provider.Name() != "yahoo" {
		t.Errorf("unexpected cross-border candidates: %+v", cross)
	}

	cfg.Providers.Domestic = append(cfg.Providers.Domestic, config.ProviderEntry{Name: "bloomberg", MaxRetries: 1})
	if _, err := buildPipeline(cfg, logger.Discard()); !errs.IsConfiguration(err) {
		t.Errorf("unknown provider must be a configuration error, got %v", err)
	}
}

func TestOpenRecorder(t *testing.T) {
	log := logger.Discard().WithComponent("test")
	cfg := testConfig(t)

	cfg.Database.Driver = "none"
	if _, ok := openRecorder(cfg, log).(*recorder.NoopRecorder); !ok {
		t.Error("driver none must give a noop recorder")
	}

	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "db", "runs.db")
	rec := openRecorder(cfg, log)
	if _, ok := rec.(*recorder.SQLRecorder); !ok {
		t.Errorf("expected sqlite recorder, got %T", rec)
	}
	rec.Close()

	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://u@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	if _, ok := openRecorder(cfg, log).(*recorder.NoopRecorder); !ok {
		t.Error("unreachable postgres must fall back to noop")
	}
}

func TestConfigureFont_WarnsWithoutCJKFont(t *testing.T) {
	var buf bytes.Buffer
	l := logger.Discard()
	l.SetOutput(&buf)
	log := l.WithComponent("test")

	if configureFont("", log) {
		t.Error("empty font path must not report a loaded font")
	}
	if !strings.Contains(buf.String(), "font_path not set") {
		t.Errorf("expected a warning, got %q", buf.String())
	}

	buf.Reset()
	if configureFont(filepath.Join(t.TempDir(), "missing.ttf"), log) {
		t.Error("missing font file must not report a loaded font")
	}
	if !strings.Contains(buf.String(), "font not loaded") {
		t.Errorf("expected a load warning, got %q", buf.String())
	}
}
