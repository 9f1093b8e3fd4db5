package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in config, logs and file names.
const DateLayout = "2006-01-02"

// PricePoint is one normalized daily close.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// PriceSeries holds one acquisition result. It is never cached across runs.
type PriceSeries struct {
	Provider string
	Points   []PricePoint
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// Sorted returns a copy of the series ordered by ascending date.
func (s PriceSeries) Sorted() PriceSeries {
	pts := make([]PricePoint, len(s.Points))
	copy(pts, s.Points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	return PriceSeries{Provider: s.Provider, Points: pts}
}

// Latest returns the point with the greatest date.
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	latest := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return latest, true
}

// ParseDate parses a YYYY-MM-DD (or YYYYMMDD) string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	if len(s) == 8 {
		return time.ParseInLocation("20060102", s, time.UTC)
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
