package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

// ComputeDeviation derives the trailing moving average and the relative
// deviation (close-MA)/MA for every point of series.
//
// The input is copied and sorted by date; duplicate dates are rejected.
// Points before the window fills carry ReasonInsufficientHistory, and a zero
// average yields ReasonZeroAverage instead of an infinite or NaN value.
func ComputeDeviation(spec model.IndexSpec, series model.PriceSeries, window int) (*model.DeviationSeries, error) {
	if window <= 0 {
		window = model.DefaultWindow
	}
	if series.Len() == 0 {
		return nil, errs.NewComputationError(time.Time{}, errs.ErrEmptySeries)
	}

	sorted := series.Sorted().Points
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, errs.NewComputationError(sorted[i].Date, errs.ErrDuplicateDate)
		}
	}

	n := decimal.NewFromInt(int64(window))
	out := make([]model.DeviationPoint, len(sorted))
	sum := decimal.Zero
	for i, p := range sorted {
		sum = sum.Add(p.Close)
		if i >= window {
			sum = sum.Sub(sorted[i-window].Close)
		}

		dp := model.DeviationPoint{Date: p.Date, Close: p.Close}
		switch {
		case i < window-1:
			dp.Reason = model.ReasonInsufficientHistory
		default:
			ma := sum.Div(n)
			dp.MA = decimal.NewNullDecimal(ma)
			if ma.IsZero() {
				dp.Reason = model.ReasonZeroAverage
			} else {
				dp.Deviation = decimal.NewNullDecimal(p.Close.Sub(ma).Div(ma))
			}
		}
		out[i] = dp
	}

	return &model.DeviationSeries{
		Spec:     spec,
		Provider: series.Provider,
		Window:   window,
		Points:   out,
	}, nil
}
