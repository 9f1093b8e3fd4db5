package recorder

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord summarizes one batch run.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// IndexResult holds the outcome of one index within a run. Error is empty on success.
type IndexResult struct {
	RunID           string
	DisplayName     string
	Category        string
	Provider        string
	Attempts        int
	Points          int
	LatestDate      time.Time
	LatestClose     decimal.NullDecimal
	LatestMA        decimal.NullDecimal
	LatestDeviation decimal.NullDecimal
	ChartPath       string
	Error           string
}

// Recorder persists run history for later analysis. It is never read back as a price cache.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordIndexResult(res *IndexResult) error
	Close() error
}
