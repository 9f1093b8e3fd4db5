package scheduler

import (
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers whether an exchange holds a session on a given day.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Timezone *time.Location
}

// NewTradingCalendar loads the exchange calendar for an ISO 10383 MIC (xshg, xhkg).
// When the library has no calendar for the MIC it falls back to Mon-Fri.
func NewTradingCalendar(mic string, fallbackLoc *time.Location) *TradingCalendar {
	tc := &TradingCalendar{MIC: mic, Timezone: fallbackLoc}
	if cal := calendar.GetCalendar(mic); cal != nil {
		tc.Calendar = cal
		tc.Timezone = cal.Loc
	}
	if tc.Timezone == nil {
		tc.Timezone = time.UTC
	}
	return tc
}

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.Timezone)
	if tc.Calendar == nil {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// AnyTradingDay reports whether at least one of the calendars has a session on date.
func AnyTradingDay(date time.Time, cals ...*TradingCalendar) bool {
	for _, c := range cals {
		if c.IsTradingDay(date) {
			return true
		}
	}
	return false
}
