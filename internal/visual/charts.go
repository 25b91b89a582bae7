package visual

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"

	"fundview/internal/funding"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorPositive      = "#34d399"
	colorNegative      = "#f87171"
	colorRate          = "#3b82f6"
	colorCumulative    = "#fbbf24"

	chartWidthPx    = 1600
	rateHeightPx    = 520
	monthlyHeightPx = 420
)

// PageInput carries the two derived series for one instrument.
type PageInput struct {
	Instrument string
	Points     []funding.CumulativePoint
	Months     []funding.MonthlyTotal
	Annualized bool
}

// BuildPage renders the two funding charts into one HTML page. Empty series
// produce an empty-but-valid page, never an error.
func BuildPage(input PageInput) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s funding", strings.ToUpper(input.Instrument))

	page.AddCharts(
		fundingRateChart(input.Instrument, input.Points),
		monthlyTotalsChart(input.Instrument, input.Months, input.Annualized),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fundingRateChart plots the quoted 8h rate with the cumulative total of
// the hourly payments overlaid, both in percent.
func fundingRateChart(instrument string, points []funding.CumulativePoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", rateHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s Historical Funding", strings.ToUpper(instrument)),
			Subtitle:      "Funding rate % per 8h with cumulative total",
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Formatter: "{value} %"},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	xAxis := make([]string, len(points))
	rates := make([]opts.LineData, len(points))
	running := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = p.Timestamp.UTC().Format("2006-01-02 15:04")
		rates[i] = opts.LineData{Value: pct(p.Rate8H)}
		running[i] = opts.LineData{Value: pct(p.Running)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Funding rate", rates,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorRate, Width: 1}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorRate, Opacity: opts.Float(0.15)}),
	)
	line.AddSeries("Cumulative", running,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorCumulative, Width: 2}),
	)
	return line
}

// monthlyTotalsChart plots summed funding per calendar month, green for
// positive months and red for negative.
func monthlyTotalsChart(instrument string, months []funding.MonthlyTotal, annualized bool) *charts.Bar {
	subtitle := "Funding total % per calendar month"
	if annualized {
		subtitle = "Monthly funding % annualized (x12)"
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", monthlyHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s Monthly Funding Totals", strings.ToUpper(instrument)),
			Subtitle:      subtitle,
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Formatter: "{value} %"},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)

	xAxis := make([]string, len(months))
	bars := make([]opts.BarData, len(months))
	for i, m := range months {
		total := m.Total
		if annualized {
			total = funding.Annualize(total)
		}
		color := colorNegative
		if !total.IsNegative() {
			color = colorPositive
		}
		xAxis[i] = m.Month.String()
		bars[i] = opts.BarData{
			Value: pct(total),
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.8),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Funding total", bars)
	return bar
}

var hundred = decimal.NewFromInt(100)

// pct converts a decimal fraction to a rounded float percentage for display.
func pct(v decimal.Decimal) float64 {
	f, _ := v.Mul(hundred).Float64()
	return round(f, 6)
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

// PageHeight reports the pixel height needed for the PNG snapshot.
func PageHeight() int {
	height := rateHeightPx + monthlyHeightPx
	if height < 520 {
		height = 520
	}
	return height
}

// PageWidth reports the pixel width of the rendered page.
func PageWidth() int { return chartWidthPx }
