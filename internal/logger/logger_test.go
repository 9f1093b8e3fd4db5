package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponentJSON(t *testing.T) {
	l := New(Options{Level: "debug", Format: "json"})
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("collector").WithField("provider", "eastmoney").Info("fetched")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["component"] != "collector" || line["provider"] != "eastmoney" || line["msg"] != "fetched" {
		t.Errorf("unexpected fields: %v", line)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", l.GetLevel())
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := New(Options{Level: "chatty"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", l.GetLevel())
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := New(Options{Output: path})
	l.WithComponent("batch").Warn("index skipped")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "index skipped") {
		t.Errorf("log file missing message: %q", data)
	}
}
