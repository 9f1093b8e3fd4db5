package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateDeviationRange(t *testing.T) {
	closes := []int64{100}
	for i := 0; i < 58; i++ {
		closes = append(closes, 105)
	}
	closes = append(closes, 110, 90, 105)
	ds, err := ComputeDeviation(testSpec, fromCloses(closes...), 60)
	if err != nil {
		t.Fatal(err)
	}

	r, err := CalculateDeviationRange(ds.Points, day(0))
	if err != nil {
		t.Fatal(err)
	}
	if r.Samples != 3 {
		t.Fatalf("samples = %d, want 3", r.Samples)
	}
	if !r.High.Equal(ds.Points[59].Deviation.Decimal) || !r.Low.Equal(ds.Points[60].Deviation.Decimal) {
		t.Errorf("high/low = %s/%s", r.High, r.Low)
	}
	if !r.Latest.Equal(ds.Points[61].Deviation.Decimal) {
		t.Errorf("latest = %s", r.Latest)
	}
	if r.Position.LessThan(decimal.Zero) || r.Position.GreaterThan(decimal.NewFromInt(1)) {
		t.Errorf("position out of range: %s", r.Position)
	}

	// window after the data
	if _, err := CalculateDeviationRange(ds.Points, day(100)); err == nil {
		t.Error("expected error for empty window")
	}
}

func TestCalculateRangePosition(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		cur, high, low, want string
	}{
		{"0.05", "0.10", "-0.10", "0.75"},
		{"0.20", "0.10", "-0.10", "1"},
		{"-0.30", "0.10", "-0.10", "0"},
		{"0.01", "0.01", "0.01", "0.5"},
	}
	for _, tt := range tests {
		got, err := CalculateRangePosition(d(tt.cur), d(tt.high), d(tt.low))
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(d(tt.want)) {
			t.Errorf("position(%s in [%s,%s]) = %s, want %s", tt.cur, tt.low, tt.high, got, tt.want)
		}
	}
	if _, err := CalculateRangePosition(d("0"), d("-1"), d("1")); err == nil {
		t.Error("expected error when high < low")
	}
}
