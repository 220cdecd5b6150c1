package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlySeries builds end-of-month samples from start through end inclusive.
func monthlySeries(start, end time.Time) TimeSeries {
	var series TimeSeries
	value := 100.0
	for d := start; !d.After(end); d = time.Date(d.Year(), d.Month()+2, 0, 0, 0, 0, 0, time.UTC) {
		series = append(series, TimeSeriesPoint{Date: d, Value: value})
		value += 1
	}
	return series
}

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"1m", "1M", " 1M "} {
		w, err := ParseWindow(s)
		require.NoError(t, err)
		assert.Equal(t, Window1M, w)
	}

	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowMax, w)

	_, err = ParseWindow("2W")
	assert.Error(t, err)
}

func TestFilterWindowMaxReturnsSeriesUnchanged(t *testing.T) {
	series := monthlySeries(date(2020, time.January, 31), date(2023, time.June, 30))
	got := FilterWindow(series, WindowMax)
	assert.Equal(t, series, got)
}

// The cutoff is computed from the dataset's own latest sample, not the
// wall clock, so a stale historical snapshot keeps a full year of history.
func TestFilterWindowUsesSeriesOwnMaxDate(t *testing.T) {
	series := monthlySeries(date(2020, time.January, 31), date(2023, time.June, 30))
	require.Equal(t, date(2023, time.June, 30), series.MaxDate())

	got := FilterWindow(series, Window1Y)
	require.NotEmpty(t, got)

	cutoff := date(2022, time.June, 30)
	assert.False(t, got[0].Date.Before(cutoff), "min date must be >= cutoff")
	assert.Equal(t, series.MaxDate(), got.MaxDate())
	for _, p := range got {
		assert.False(t, p.Date.Before(cutoff))
	}
	// 13 end-of-month samples between 2022-06-30 and 2023-06-30 inclusive
	assert.Len(t, got, 13)
}

func TestFilterWindowBounds(t *testing.T) {
	series := monthlySeries(date(2018, time.January, 31), date(2023, time.June, 30))

	for _, window := range []Window{Window1M, Window6M, Window1Y, Window5Y} {
		got := FilterWindow(series, window)
		require.NotEmpty(t, got, "window %s", window)
		assert.True(t, got.MaxDate().Equal(series.MaxDate()) || got.MaxDate().Before(series.MaxDate()))

		cutoff := subtractMonths(series.MaxDate(), window.months())
		for _, p := range got {
			assert.False(t, p.Date.Before(cutoff), "window %s leaked %s before cutoff %s",
				window, p.Date, cutoff)
		}
	}
}

func TestFilterWindowPreservesOrder(t *testing.T) {
	series := monthlySeries(date(2022, time.January, 31), date(2023, time.June, 30))
	got := FilterWindow(series, Window6M)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Date.After(got[i-1].Date))
	}
}

func TestFilterWindowEmptySeries(t *testing.T) {
	assert.Empty(t, FilterWindow(nil, Window1Y))
}

// Subtracting a month from a day the target month doesn't have clamps to
// the last valid day of that month.
func TestSubtractMonthsClampsDay(t *testing.T) {
	tests := []struct {
		from   time.Time
		months int
		want   time.Time
	}{
		{date(2023, time.January, 31), 1, date(2022, time.December, 31)},
		{date(2023, time.March, 31), 1, date(2023, time.February, 28)},
		{date(2024, time.March, 31), 1, date(2024, time.February, 29)}, // leap year
		{date(2023, time.July, 31), 1, date(2023, time.June, 30)},
		{date(2023, time.March, 30), 12, date(2022, time.March, 30)},
		{date(2023, time.February, 28), 60, date(2018, time.February, 28)},
		{date(2023, time.January, 15), 6, date(2022, time.July, 15)},
	}

	for _, tt := range tests {
		got := subtractMonths(tt.from, tt.months)
		assert.Equal(t, tt.want, got, "%s minus %d months", tt.from, tt.months)
	}
}
