package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"IndexDeviation/internal/errs"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"domestic", CategoryDomestic, false},
		{"A_SHARE", CategoryDomestic, false},
		{"cross_border", CategoryCrossBorder, false},
		{" hk ", CategoryCrossBorder, false},
		{"CROSS_BORDER", CategoryCrossBorder, false},
		{"us", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriceSeries_SortedDoesNotMutate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	s := PriceSeries{Provider: "p", Points: []PricePoint{
		{Date: d(3), Close: decimal.NewFromInt(3)},
		{Date: d(1), Close: decimal.NewFromInt(1)},
		{Date: d(2), Close: decimal.NewFromInt(2)},
	}}
	sorted := s.Sorted()
	for i, p := range sorted.Points {
		if !p.Date.Equal(d(i + 1)) {
			t.Errorf("point %d: got %s", i, p.Date)
		}
	}
	if !s.Points[0].Date.Equal(d(3)) {
		t.Error("Sorted must not reorder the receiver")
	}
	latest, ok := s.Latest()
	if !ok || !latest.Date.Equal(d(3)) {
		t.Errorf("Latest = %v, %v", latest, ok)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2015-01-01", "20150101"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if !got.Equal(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("ParseDate(%q) = %s", s, got)
		}
	}
	if _, err := ParseDate("2015/01/01"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDeviationPoint_Err(t *testing.T) {
	p := DeviationPoint{Date: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), Reason: ReasonZeroAverage}
	if !errors.Is(p.Err(), errs.ErrZeroAverage) {
		t.Errorf("expected zero-average error, got %v", p.Err())
	}
	p.Reason = ReasonInsufficientHistory
	if p.Err() != nil {
		t.Errorf("insufficient history is not an error, got %v", p.Err())
	}
}
