package calculator

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/model"
)

// DeviationRange is the span of defined deviations inside a chart window and
// where the latest defined deviation sits within it.
type DeviationRange struct {
	High     decimal.Decimal
	Low      decimal.Decimal
	Latest   decimal.Decimal
	Position decimal.Decimal // 0 at Low, 1 at High
	Samples  int
}

// CalculateDeviationRange scans the points dated on or after since and returns
// the high, low and latest defined deviation.
func CalculateDeviationRange(points []model.DeviationPoint, since time.Time) (*DeviationRange, error) {
	r := &DeviationRange{}
	for _, p := range points {
		if p.Date.Before(since) || !p.Deviation.Valid {
			continue
		}
		d := p.Deviation.Decimal
		if r.Samples == 0 || d.GreaterThan(r.High) {
			r.High = d
		}
		if r.Samples == 0 || d.LessThan(r.Low) {
			r.Low = d
		}
		r.Latest = d
		r.Samples++
	}
	if r.Samples == 0 {
		return nil, errors.New("no defined deviation in range")
	}
	pos, err := CalculateRangePosition(r.Latest, r.High, r.Low)
	if err != nil {
		return nil, err
	}
	r.Position = pos
	return r, nil
}

// CalculateRangePosition returns where current sits within [low, high], clamped to 0..1.
func CalculateRangePosition(current, high, low decimal.Decimal) (decimal.Decimal, error) {
	if high.Equal(low) {
		return decimal.NewFromFloat(0.5), nil
	}
	if high.LessThan(low) {
		return decimal.Zero, errors.New("high must be >= low")
	}
	pos := current.Sub(low).Div(high.Sub(low))
	if pos.IsNegative() {
		pos = decimal.Zero
	}
	if pos.GreaterThan(decimal.NewFromInt(1)) {
		pos = decimal.NewFromInt(1)
	}
	return pos, nil
}
