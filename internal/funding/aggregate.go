package funding

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cumulate turns a chronologically sorted sample run into the per-period
// series with a running total. The input is not re-sorted; callers own the
// ordering. Empty input yields an empty series.
func Cumulate(samples []Sample) []CumulativePoint {
	if len(samples) == 0 {
		return nil
	}
	points := make([]CumulativePoint, 0, len(samples))
	running := decimal.Zero
	for _, s := range samples {
		running = running.Add(s.Rate)
		points = append(points, CumulativePoint{
			Timestamp: s.Timestamp,
			Rate:      s.Rate,
			Rate8H:    s.Rate8H,
			Running:   running,
		})
	}
	return points
}

// Monthly groups samples by UTC calendar month and sums the funding per
// group. Months without samples are absent; with sorted input the result is
// in chronological month order.
func Monthly(samples []Sample) []MonthlyTotal {
	if len(samples) == 0 {
		return nil
	}
	totals := make(map[MonthKey]decimal.Decimal, 12)
	order := make([]MonthKey, 0, 12)
	for _, s := range samples {
		key := MonthOf(s.Timestamp)
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] = totals[key].Add(s.Rate)
	}
	out := make([]MonthlyTotal, 0, len(order))
	for _, key := range order {
		out = append(out, MonthlyTotal{Month: key, Total: totals[key]})
	}
	return out
}

// CumulateWindow recomputes the running total from zero inside
// [from, to). Points outside the window are dropped.
func CumulateWindow(samples []Sample, from, to time.Time) []CumulativePoint {
	if len(samples) == 0 || !from.Before(to) {
		return nil
	}
	var points []CumulativePoint
	running := decimal.Zero
	for _, s := range samples {
		if s.Timestamp.Before(from) || !s.Timestamp.Before(to) {
			continue
		}
		running = running.Add(s.Rate)
		points = append(points, CumulativePoint{
			Timestamp: s.Timestamp,
			Rate:      s.Rate,
			Rate8H:    s.Rate8H,
			Running:   running,
		})
	}
	return points
}
