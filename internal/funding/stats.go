package funding

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Stats summarizes funding over the charted window.
type Stats struct {
	LatestMonth decimal.Decimal `json:"latest_month"`
	Trailing12M decimal.Decimal `json:"trailing_12m"`
	AllTime     decimal.Decimal `json:"all_time"`
	Yearly      []YearTotal     `json:"yearly"`
}

// YearTotal is the summed funding for one calendar year.
type YearTotal struct {
	Year  int             `json:"year"`
	Total decimal.Decimal `json:"total"`
}

var twelve = decimal.NewFromInt(12)

// Annualize converts a monthly funding total into its x12 equivalent.
func Annualize(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(twelve)
}

// Summarize derives headline stats from chronologically ordered monthly
// totals.
func Summarize(months []MonthlyTotal) Stats {
	stats := Stats{
		LatestMonth: decimal.Zero,
		Trailing12M: decimal.Zero,
		AllTime:     decimal.Zero,
	}
	if len(months) == 0 {
		return stats
	}
	stats.LatestMonth = months[len(months)-1].Total

	tail := months
	if len(tail) > 12 {
		tail = tail[len(tail)-12:]
	}
	for _, m := range tail {
		stats.Trailing12M = stats.Trailing12M.Add(m.Total)
	}

	yearly := make(map[int]decimal.Decimal)
	for _, m := range months {
		stats.AllTime = stats.AllTime.Add(m.Total)
		yearly[m.Month.Year] = yearly[m.Month.Year].Add(m.Total)
	}
	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		stats.Yearly = append(stats.Yearly, YearTotal{Year: y, Total: yearly[y]})
	}
	return stats
}
