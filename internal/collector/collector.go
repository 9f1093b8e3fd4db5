package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
)

const (
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 2 * time.Second
)

// MockProvider returns controllable fixed data for development and testing.
// Errs is consumed one entry per call before Data is served.
type MockProvider struct {
	ProviderName string
	Price        float64
	HistoryLen   int
	Data         []model.PricePoint
	Errs         []error

	mu    sync.Mutex
	calls int
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) FetchDaily(ctx context.Context, _ model.IndexSpec) ([]model.PricePoint, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call < len(m.Errs) && m.Errs[call] != nil {
		return nil, m.Errs[call]
	}
	if m.Data != nil {
		return m.Data, nil
	}
	return generateMockPoints(m.Price, m.HistoryLen), nil
}

// Calls reports how many times FetchDaily ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func generateMockPoints(basePrice float64, count int) []model.PricePoint {
	if basePrice <= 0 {
		basePrice = 3000
	}
	if count <= 0 {
		count = 300
	}
	end := model.CalendarDate(time.Now())
	points := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		points[i] = model.PricePoint{
			Date:  end.AddDate(0, 0, -(count - 1 - i)),
			Close: decimal.NewFromFloat(p).Round(2),
		}
	}
	return points
}

// Candidate is one provider in a fallback list with its retry policy.
type Candidate struct {
	Provider      Provider
	MaxRetries    int
	RetryInterval time.Duration
}

// FetchResult is a successful acquisition plus the number of provider calls it took.
type FetchResult struct {
	Series   model.PriceSeries
	Provider string
	Attempts int
}

// Pipeline acquires a daily series for an index by walking the candidate
// providers of its category in order, retrying each before falling back.
type Pipeline struct {
	candidates map[model.Category][]Candidate
	log        *logger.Entry
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a Pipeline. Candidate lists are copied; a non-positive
// MaxRetries or a negative RetryInterval takes the default.
func NewPipeline(candidates map[model.Category][]Candidate, log *logger.Log) *Pipeline {
	if log == nil {
		log = logger.Get()
	}
	lists := make(map[model.Category][]Candidate, len(candidates))
	for cat, list := range candidates {
		cp := make([]Candidate, len(list))
		for i, c := range list {
			if c.MaxRetries <= 0 {
				c.MaxRetries = DefaultMaxRetries
			}
			if c.RetryInterval < 0 {
				c.RetryInterval = DefaultRetryInterval
			}
			cp[i] = c
		}
		lists[cat] = cp
	}
	return &Pipeline{
		candidates: lists,
		log:        log.WithComponent("collector"),
		sleep:      sleepCtx,
	}
}

// Candidates returns the fallback list used for category.
func (p *Pipeline) Candidates(category model.Category) []Candidate {
	return append([]Candidate(nil), p.candidates[category]...)
}

// Fetch returns the first valid series any candidate produces.
func (p *Pipeline) Fetch(ctx context.Context, spec model.IndexSpec) (model.PriceSeries, error) {
	res, err := p.FetchWithStats(ctx, spec)
	if err != nil {
		return model.PriceSeries{}, err
	}
	return res.Series, nil
}

// FetchWithStats is Fetch that also reports the winning provider and the
// total number of calls made. Every failure is an *errs.AcquisitionFailure.
func (p *Pipeline) FetchWithStats(ctx context.Context, spec model.IndexSpec) (*FetchResult, error) {
	candidates := p.candidates[spec.Category]
	tried := make([]errs.ProviderAttempt, 0, len(candidates))
	total := 0

	for _, c := range candidates {
		name := c.Provider.Name()
		attempt := errs.ProviderAttempt{Provider: name}

		for n := 1; n <= c.MaxRetries; n++ {
			total++
			attempt.Attempts = n

			points, err := p.call(ctx, c.Provider, spec)
			if err == nil {
				p.log.WithFields(logger.Fields{
					"index": spec.DisplayName, "provider": name, "attempt": n, "rows": len(points),
				}).Info("fetched daily series")
				return &FetchResult{
					Series:   model.PriceSeries{Provider: name, Points: points},
					Provider: name,
					Attempts: total,
				}, nil
			}

			attempt.LastErr = errs.NewTransientProviderError(name, n, err)
			p.log.WithFields(logger.Fields{
				"index": spec.DisplayName, "provider": name, "attempt": n, "max_retries": c.MaxRetries,
			}).WithError(err).Warn("provider call failed")

			if ctx.Err() != nil {
				tried = append(tried, attempt)
				return nil, errs.NewAcquisitionFailure(spec.DisplayName, tried)
			}
			if n < c.MaxRetries {
				if err := p.sleep(ctx, c.RetryInterval); err != nil {
					attempt.LastErr = errs.NewTransientProviderError(name, n, err)
					tried = append(tried, attempt)
					return nil, errs.NewAcquisitionFailure(spec.DisplayName, tried)
				}
			}
		}

		tried = append(tried, attempt)
		p.log.WithFields(logger.Fields{"index": spec.DisplayName, "provider": name}).
			Warn("provider exhausted, falling back")
	}

	return nil, errs.NewAcquisitionFailure(spec.DisplayName, tried)
}

// call runs one provider call and validates its payload.
func (p *Pipeline) call(ctx context.Context, provider Provider, spec model.IndexSpec) (points []model.PricePoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			points, err = nil, fmt.Errorf("provider panic: %v", r)
		}
	}()

	points, err = provider.FetchDaily(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, errs.ErrEmptyPayload
	}
	for i, pt := range points {
		if pt.Date.IsZero() {
			return nil, fmt.Errorf("row %d has no date", i)
		}
	}
	return points, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsAcquisitionFailure reports whether err means every provider was exhausted.
func IsAcquisitionFailure(err error) bool {
	var af *errs.AcquisitionFailure
	return errors.As(err, &af)
}
