package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "history.db")
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := r.RecordRun(&RunRecord{
		RunID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Minute),
		Total: 2, Succeeded: 1, Failed: 1,
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	ok := &IndexResult{
		RunID: "run-1", DisplayName: "A股-沪深300", Category: "DOMESTIC", Provider: "eastmoney",
		Attempts: 1, Points: 2300,
		LatestDate:      time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		LatestClose:     decimal.NewNullDecimal(decimal.RequireFromString("3516.08")),
		LatestMA:        decimal.NewNullDecimal(decimal.RequireFromString("3350.12")),
		LatestDeviation: decimal.NewNullDecimal(decimal.RequireFromString("0.0495")),
		ChartPath:       "output/A股-沪深300MA60偏离度_2024-02-29.png",
	}
	failed := &IndexResult{RunID: "run-1", DisplayName: "港股-恒生指数", Category: "CROSS_BORDER", Error: "acquisition failed"}
	for _, res := range []*IndexResult{ok, failed} {
		if err := r.RecordIndexResult(res); err != nil {
			t.Fatalf("RecordIndexResult: %v", err)
		}
	}

	got, err := r.Results("run-1")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if !got[0].LatestDate.Equal(ok.LatestDate) || !got[0].LatestDeviation.Decimal.Equal(ok.LatestDeviation.Decimal) {
		t.Errorf("unexpected first result: %+v", got[0])
	}
	if got[1].LatestMA.Valid || !got[1].LatestDate.IsZero() || got[1].Error == "" {
		t.Errorf("failed result should carry no values: %+v", got[1])
	}

	// run ids are unique
	if err := r.RecordRun(&RunRecord{RunID: "run-1", StartedAt: start, FinishedAt: start}); err == nil {
		t.Error("expected duplicate run id to be rejected")
	}
}

func TestDialectRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?,?)"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got := postgresDialect.rebind(q); got != "INSERT INTO t (a, b) VALUES ($1,$2)" {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&RunRecord{}); err != nil {
		t.Error(err)
	}
	if err := r.RecordIndexResult(&IndexResult{}); err != nil {
		t.Error(err)
	}
	if err := r.Close(); err != nil {
		t.Error(err)
	}
}
