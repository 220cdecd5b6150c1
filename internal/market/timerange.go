package market

import (
	"fmt"
	"strings"
	"time"
)

// Window is a relative display window over a time series.
type Window string

const (
	Window1M  Window = "1M"
	Window6M  Window = "6M"
	Window1Y  Window = "1Y"
	Window5Y  Window = "5Y"
	WindowMax Window = "MAX"
)

// ParseWindow converts a query-string value into a Window.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToUpper(strings.TrimSpace(s))) {
	case Window1M:
		return Window1M, nil
	case Window6M:
		return Window6M, nil
	case Window1Y:
		return Window1Y, nil
	case Window5Y:
		return Window5Y, nil
	case WindowMax, "":
		return WindowMax, nil
	}
	return WindowMax, fmt.Errorf("invalid window %q; use 1M, 6M, 1Y, 5Y or MAX", s)
}

func (w Window) months() int {
	switch w {
	case Window1M:
		return 1
	case Window6M:
		return 6
	case Window1Y:
		return 12
	case Window5Y:
		return 60
	}
	return 0
}

// FilterWindow slices a series to the requested window. The cutoff is
// computed from the series' own maximum date rather than wall-clock time,
// so stale historical snapshots keep their full visible history.
func FilterWindow(series TimeSeries, window Window) TimeSeries {
	if window == WindowMax || len(series) == 0 {
		return series
	}

	cutoff := subtractMonths(series.MaxDate(), window.months())

	for i, p := range series {
		if !p.Date.Before(cutoff) {
			return series[i:]
		}
	}
	return TimeSeries{}
}

// subtractMonths moves a date back by whole calendar months, clamping the
// day to the last valid day of the target month (Jan 31 minus one month is
// Dec 31; Mar 31 minus one month is Feb 28/29).
func subtractMonths(date time.Time, months int) time.Time {
	year := date.Year()
	month := int(date.Month()) - months
	for month < 1 {
		month += 12
		year--
	}

	day := date.Day()
	if last := lastDayOfMonth(year, time.Month(month)); day > last {
		day = last
	}

	return time.Date(year, time.Month(month), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
