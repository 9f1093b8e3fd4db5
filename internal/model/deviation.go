package model

import (
	"time"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/errs"
)

// DefaultWindow is the MA60 window length in trading sessions.
const DefaultWindow = 60

// MissingReason explains why a DeviationPoint has no deviation.
type MissingReason int

const (
	ReasonNone MissingReason = iota
	ReasonInsufficientHistory
	ReasonZeroAverage
)

func (r MissingReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInsufficientHistory:
		return "insufficient_history"
	case ReasonZeroAverage:
		return "zero_average"
	default:
		return "unknown"
	}
}

// DeviationPoint is a PricePoint plus its trailing average and relative deviation.
type DeviationPoint struct {
	Date      time.Time
	Close     decimal.Decimal
	MA        decimal.NullDecimal
	Deviation decimal.NullDecimal
	Reason    MissingReason
}

// Err returns the computation error recorded at this point, if any.
func (p DeviationPoint) Err() error {
	if p.Reason == ReasonZeroAverage {
		return errs.NewComputationError(p.Date, errs.ErrZeroAverage)
	}
	return nil
}

// DeviationSeries is built once by the engine and read once by the renderer.
type DeviationSeries struct {
	Spec     IndexSpec
	Provider string
	Window   int
	Points   []DeviationPoint
}

func (s *DeviationSeries) Len() int { return len(s.Points) }

// Latest returns the last (most recent) point. The engine guarantees a non-empty series.
func (s *DeviationSeries) Latest() DeviationPoint {
	return s.Points[len(s.Points)-1]
}

// Tail returns up to n trailing points.
func (s *DeviationSeries) Tail(n int) []DeviationPoint {
	if n >= len(s.Points) {
		return s.Points
	}
	return s.Points[len(s.Points)-n:]
}

// Issues returns the computation errors carried by individual points.
func (s *DeviationSeries) Issues() []error {
	var out []error
	for _, p := range s.Points {
		if err := p.Err(); err != nil {
			out = append(out, err)
		}
	}
	return out
}
