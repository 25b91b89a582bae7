package funding

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(t *testing.T, day string, rate string) Sample {
	t.Helper()
	ts, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	return Sample{Timestamp: ts, Rate: decimal.RequireFromString(rate), Instrument: "BTC-PERPETUAL"}
}

func TestCumulate(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2023-01-15", "0.0001"),
		sampleAt(t, "2023-01-16", "-0.0002"),
		sampleAt(t, "2023-02-01", "0.0003"),
	}

	points := Cumulate(samples)
	require.Len(t, points, 3)
	assert.True(t, points[0].Running.Equal(decimal.RequireFromString("0.0001")))
	assert.True(t, points[1].Running.Equal(decimal.RequireFromString("-0.0001")))
	assert.True(t, points[2].Running.Equal(decimal.RequireFromString("0.0002")))
}

func TestCumulateLastEqualsSum(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2024-03-01", "0.00012"),
		sampleAt(t, "2024-03-02", "0.00034"),
		sampleAt(t, "2024-03-03", "-0.00005"),
		sampleAt(t, "2024-04-01", "0.00021"),
	}

	sum := decimal.Zero
	for _, s := range samples {
		sum = sum.Add(s.Rate)
	}

	points := Cumulate(samples)
	require.NotEmpty(t, points)
	assert.True(t, points[len(points)-1].Running.Equal(sum))
}

func TestCumulateEmpty(t *testing.T) {
	assert.Empty(t, Cumulate(nil))
	assert.Empty(t, Cumulate([]Sample{}))
}

func TestMonthly(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2023-01-15", "0.0001"),
		sampleAt(t, "2023-01-16", "-0.0002"),
		sampleAt(t, "2023-02-01", "0.0003"),
	}

	months := Monthly(samples)
	require.Len(t, months, 2)
	assert.Equal(t, MonthKey{Year: 2023, Month: time.January}, months[0].Month)
	assert.True(t, months[0].Total.Equal(decimal.RequireFromString("-0.0001")))
	assert.Equal(t, MonthKey{Year: 2023, Month: time.February}, months[1].Month)
	assert.True(t, months[1].Total.Equal(decimal.RequireFromString("0.0003")))
}

func TestMonthlyConservesTotal(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2022-11-30", "0.0004"),
		sampleAt(t, "2022-12-01", "-0.0001"),
		sampleAt(t, "2022-12-31", "0.0002"),
		sampleAt(t, "2023-01-01", "0.0007"),
	}

	sum := decimal.Zero
	for _, s := range samples {
		sum = sum.Add(s.Rate)
	}
	monthSum := decimal.Zero
	for _, m := range Monthly(samples) {
		monthSum = monthSum.Add(m.Total)
	}
	assert.True(t, monthSum.Equal(sum), "monthly totals must conserve total funding")
}

func TestMonthlySkipsEmptyMonths(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2023-01-15", "0.0001"),
		sampleAt(t, "2023-03-15", "0.0002"),
	}

	months := Monthly(samples)
	require.Len(t, months, 2)
	assert.Equal(t, "2023-01", months[0].Month.String())
	assert.Equal(t, "2023-03", months[1].Month.String())
}

func TestAggregationIdempotent(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2023-05-01", "0.0001"),
		sampleAt(t, "2023-05-02", "0.0002"),
	}

	assert.Equal(t, Cumulate(samples), Cumulate(samples))
	assert.Equal(t, Monthly(samples), Monthly(samples))
}

func TestCumulateWindow(t *testing.T) {
	samples := []Sample{
		sampleAt(t, "2023-01-15", "0.0001"),
		sampleAt(t, "2023-02-10", "0.0005"),
		sampleAt(t, "2023-03-05", "-0.0002"),
	}

	from := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	points := CumulateWindow(samples, from, to)
	require.Len(t, points, 2)
	// running total restarts inside the window
	assert.True(t, points[0].Running.Equal(decimal.RequireFromString("0.0005")))
	assert.True(t, points[1].Running.Equal(decimal.RequireFromString("0.0003")))
}

func TestCumulateWindowInvertedRange(t *testing.T) {
	samples := []Sample{sampleAt(t, "2023-01-15", "0.0001")}
	from := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, CumulateWindow(samples, from, to))
}
