package output

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// DefaultChartSize is the number of endpoints plotted when no limit is given
const DefaultChartSize = 30

// RenderChart writes an interactive bar chart of the top rows to w: cumulative,
// median and max request time per endpoint. Rows are plotted in report order.
func RenderChart(w io.Writer, report *Report, top int) error {
	if top <= 0 {
		top = DefaultChartSize
	}
	rows := report.Rows
	if len(rows) > top {
		rows = rows[:top]
	}

	urls := make([]string, 0, len(rows))
	sums := make([]opts.BarData, 0, len(rows))
	medians := make([]opts.BarData, 0, len(rows))
	maxes := make([]opts.BarData, 0, len(rows))
	for _, r := range rows {
		urls = append(urls, r.URL)
		sums = append(sums, opts.BarData{Name: r.URL, Value: r.TimeSum})
		medians = append(medians, opts.BarData{Name: r.URL, Value: r.TimeMed})
		maxes = append(maxes, opts.BarData{Name: r.URL, Value: r.TimeMax})
	}

	title := "Request time by endpoint"
	if report.General.LogDate != "" {
		title = fmt.Sprintf("%s (%s)", title, report.General.LogDate)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Endpoint latency",
			Width:           "180vh",
			Height:          "100vh",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("top %d of %d endpoints, %d lines", len(rows), report.General.UniqueEndpoints, report.General.TotalLines),
			Left:     "center",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Endpoint",
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Seconds",
		}),
	)

	bar.SetXAxis(urls).
		AddSeries("time_sum", sums).
		AddSeries("time_med", medians).
		AddSeries("time_max", maxes)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

// PlotLatency renders the chart into filename
func PlotLatency(report *Report, filename string, top int) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create chart file %s: %w", filename, err)
	}
	defer f.Close()

	if err := RenderChart(f, report, top); err != nil {
		return err
	}
	return f.Close()
}
