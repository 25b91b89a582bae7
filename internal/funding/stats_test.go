package funding

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthTotal(year int, month time.Month, total string) MonthlyTotal {
	return MonthlyTotal{
		Month: MonthKey{Year: year, Month: month},
		Total: decimal.RequireFromString(total),
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	assert.True(t, stats.AllTime.IsZero())
	assert.True(t, stats.LatestMonth.IsZero())
	assert.True(t, stats.Trailing12M.IsZero())
	assert.Empty(t, stats.Yearly)
}

func TestSummarize(t *testing.T) {
	months := []MonthlyTotal{
		monthTotal(2022, time.November, "0.001"),
		monthTotal(2022, time.December, "-0.002"),
		monthTotal(2023, time.January, "0.004"),
	}

	stats := Summarize(months)
	assert.True(t, stats.LatestMonth.Equal(decimal.RequireFromString("0.004")))
	assert.True(t, stats.Trailing12M.Equal(decimal.RequireFromString("0.003")))
	assert.True(t, stats.AllTime.Equal(decimal.RequireFromString("0.003")))

	require.Len(t, stats.Yearly, 2)
	assert.Equal(t, 2022, stats.Yearly[0].Year)
	assert.True(t, stats.Yearly[0].Total.Equal(decimal.RequireFromString("-0.001")))
	assert.Equal(t, 2023, stats.Yearly[1].Year)
	assert.True(t, stats.Yearly[1].Total.Equal(decimal.RequireFromString("0.004")))
}

func TestSummarizeTrailingWindowCapsAt12(t *testing.T) {
	var months []MonthlyTotal
	key := MonthKey{Year: 2022, Month: time.January}
	for i := 0; i < 15; i++ {
		months = append(months, MonthlyTotal{Month: key, Total: decimal.RequireFromString("0.001")})
		key = key.Next()
	}

	stats := Summarize(months)
	assert.True(t, stats.Trailing12M.Equal(decimal.RequireFromString("0.012")))
	assert.True(t, stats.AllTime.Equal(decimal.RequireFromString("0.015")))
}

func TestAnnualize(t *testing.T) {
	monthly := decimal.RequireFromString("0.0005")
	assert.True(t, Annualize(monthly).Equal(decimal.RequireFromString("0.006")))
}
