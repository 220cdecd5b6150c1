package market

import "time"

// DefaultLookback is the window used to pick the reference point when a
// provider resolves stats for a location.
const DefaultLookback = Window1Y

// ComputeStats derives the normalized stats shape from a record and its
// series. The reference point is the sample nearest to lookback before the
// latest sample's date. When the reference is absent or zero the percent
// change is reported as zero with a neutral direction instead of
// propagating NaN or Inf.
func ComputeStats(record MarketRecord, series TimeSeries, lookback Window) MarketStats {
	stats := MarketStats{
		Record:     record,
		Series:     series,
		Direction:  DirectionNeutral,
		ResolvedAt: time.Now().UTC(),
	}

	if len(series) == 0 {
		return stats
	}

	current := series[len(series)-1]
	stats.CurrentValue = current.Value

	reference, ok := referencePoint(series, current.Date, lookback)
	if !ok {
		return stats
	}
	stats.ReferenceValue = reference.Value

	if reference.Value == 0 {
		return stats
	}

	stats.PercentChange = (current.Value - reference.Value) / reference.Value * 100
	switch {
	case stats.PercentChange > 0:
		stats.Direction = DirectionUp
	case stats.PercentChange < 0:
		stats.Direction = DirectionDown
	}
	return stats
}

// referencePoint picks the sample closest to lookback before end. A series
// with a single point has no reference.
func referencePoint(series TimeSeries, end time.Time, lookback Window) (TimeSeriesPoint, bool) {
	if len(series) < 2 {
		return TimeSeriesPoint{}, false
	}
	if lookback == WindowMax {
		return series[0], true
	}

	target := subtractMonths(end, lookback.months())

	best := series[0]
	bestGap := absGap(best.Date, target)
	for _, p := range series[1 : len(series)-1] {
		if gap := absGap(p.Date, target); gap < bestGap {
			best = p
			bestGap = gap
		}
	}
	return best, true
}

func absGap(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
