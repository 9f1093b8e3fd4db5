package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(prices) < period {
		return decimal.Zero, errors.New("not enough data for SMA calculation")
	}
	return decimal.Sum(decimal.Zero, prices[len(prices)-period:]...).Div(decimal.NewFromInt(int64(period))), nil
}

// CalculateMA60 returns the 60-session simple moving average ending at the last point.
func CalculateMA60(points []model.PricePoint) (decimal.Decimal, error) {
	return CalculateSMA(extractCloses(points), model.DefaultWindow)
}

func extractCloses(points []model.PricePoint) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}
