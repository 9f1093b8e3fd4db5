// Package batch runs the fetch, compute, render and record steps over a set of indices.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"IndexDeviation/internal/calculator"
	"IndexDeviation/internal/collector"
	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
	"IndexDeviation/internal/recorder"
	"IndexDeviation/internal/render"
)

// tailRows is how many trailing rows of each series are logged.
const tailRows = 5

// Fetcher acquires the daily series of one index.
type Fetcher interface {
	FetchWithStats(ctx context.Context, spec model.IndexSpec) (*collector.FetchResult, error)
}

// Options configures a Runner.
type Options struct {
	Window      int
	StartDate   time.Time
	Concurrency int
}

// Result is the outcome of one index. Err is set when acquisition or
// computation failed; a chart that could not be drawn only sets RenderErr.
type Result struct {
	Spec      model.IndexSpec
	Provider  string
	Attempts  int
	Series    *model.DeviationSeries
	Range     *calculator.DeviationRange
	ChartPath string
	Err       error
	RenderErr error
}

// Summary is the outcome of one batch run in configured index order.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (s *Summary) Failed() int { return len(s.Results) - s.Succeeded() }

// Runner executes batch runs. Renderer may be nil to skip charts.
type Runner struct {
	fetcher  Fetcher
	renderer render.Renderer
	recorder recorder.Recorder
	opts     Options
	log      *logger.Entry
	newID    func() string
}

func NewRunner(fetcher Fetcher, renderer render.Renderer, rec recorder.Recorder, opts Options, log *logger.Log) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = logger.Get()
	}
	if opts.Window <= 0 {
		opts.Window = model.DefaultWindow
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{
		fetcher:  fetcher,
		renderer: renderer,
		recorder: rec,
		opts:     opts,
		log:      log.WithComponent("batch"),
		newID:    func() string { return uuid.New().String() },
	}
}

// Run processes every spec. A failing index is logged, recorded and skipped.
func (r *Runner) Run(ctx context.Context, specs []model.IndexSpec) *Summary {
	sum := &Summary{RunID: r.newID(), StartedAt: time.Now(), Results: make([]Result, len(specs))}
	log := r.log.WithField("run_id", sum.RunID)
	log.WithFields(logger.Fields{"indices": len(specs), "concurrency": r.opts.Concurrency}).Info("batch started")

	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec model.IndexSpec) {
			defer wg.Done()
			defer func() { <-sem }()
			res := r.runOne(ctx, log, spec)
			r.record(log, sum.RunID, &res)
			sum.Results[i] = res
		}(i, spec)
	}
	wg.Wait()

	sum.FinishedAt = time.Now()
	if err := r.recorder.RecordRun(&recorder.RunRecord{
		RunID:      sum.RunID,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Total:      len(sum.Results),
		Succeeded:  sum.Succeeded(),
		Failed:     sum.Failed(),
	}); err != nil {
		log.WithError(err).Warn("record run failed")
	}

	log.WithFields(logger.Fields{
		"succeeded": sum.Succeeded(),
		"failed":    sum.Failed(),
		"elapsed":   sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond).String(),
	}).Info("batch finished")
	return sum
}

func (r *Runner) runOne(ctx context.Context, log *logger.Entry, spec model.IndexSpec) Result {
	res := Result{Spec: spec}
	ilog := log.WithFields(logger.Fields{"index": spec.DisplayName, "code": spec.SymbolCode})

	fetched, err := r.fetcher.FetchWithStats(ctx, spec)
	if err != nil {
		ilog.WithError(err).Error("acquisition failed, skipping index")
		res.Err = err
		return res
	}
	res.Provider = fetched.Provider
	res.Attempts = fetched.Attempts

	series, err := calculator.ComputeDeviation(spec, fetched.Series, r.opts.Window)
	if err != nil {
		ilog.WithError(err).Error("deviation computation failed, skipping index")
		res.Err = err
		return res
	}
	res.Series = series

	for _, issue := range series.Issues() {
		ilog.WithError(issue).Warn("computation issue")
	}
	for _, p := range series.Tail(tailRows) {
		ilog.WithFields(logger.Fields{
			"date":      p.Date.Format(model.DateLayout),
			"close":     p.Close.String(),
			"ma":        nullString(p.MA),
			"deviation": nullString(p.Deviation),
		}).Info("tail")
	}

	if rng, err := calculator.CalculateDeviationRange(series.Points, r.opts.StartDate); err == nil {
		res.Range = rng
		ilog.WithFields(logger.Fields{
			"high":     rng.High.StringFixed(4),
			"low":      rng.Low.StringFixed(4),
			"position": rng.Position.StringFixed(2),
		}).Info("deviation range since start date")
	}

	if r.renderer != nil {
		path, err := r.renderer.Render(series, r.opts.StartDate)
		if err != nil {
			ilog.WithError(err).Warn("chart not rendered")
			res.RenderErr = err
		} else {
			res.ChartPath = path
			ilog.WithField("path", path).Info("chart saved")
		}
	}
	return res
}

func (r *Runner) record(log *logger.Entry, runID string, res *Result) {
	row := &recorder.IndexResult{
		RunID:       runID,
		DisplayName: res.Spec.DisplayName,
		Category:    string(res.Spec.Category),
		Provider:    res.Provider,
		Attempts:    res.Attempts,
		ChartPath:   res.ChartPath,
	}
	if res.Series != nil && res.Series.Len() > 0 {
		last := res.Series.Latest()
		row.Points = res.Series.Len()
		row.LatestDate = last.Date
		row.LatestClose = decimal.NewNullDecimal(last.Close)
		row.LatestMA = last.MA
		row.LatestDeviation = last.Deviation
	}
	switch {
	case res.Err != nil:
		row.Error = res.Err.Error()
	case res.RenderErr != nil:
		row.Error = "render: " + res.RenderErr.Error()
	}
	if err := r.recorder.RecordIndexResult(row); err != nil {
		log.WithError(err).WithField("index", res.Spec.DisplayName).Warn("record index result failed")
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "NaN"
	}
	return d.Decimal.StringFixed(4)
}
