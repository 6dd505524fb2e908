package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartTitle  = "File creation dates"
	chartHeight = "500px"
	xAxisRotate = 45
)

// renderChart writes an HTML bar chart counting resolved files per date.
// Untracked and failed paths are left out.
func renderChart(w io.Writer, records []batchRecord) error {
	counts := make(map[string]int)

	for _, rec := range records {
		if rec.Found && rec.Error == "" {
			counts[rec.Date]++
		}
	}

	labels := make([]string, 0, len(counts))
	for date := range counts {
		labels = append(labels, date)
	}

	slices.Sort(labels)

	data := make([]opts.BarData, len(labels))
	for i, date := range labels {
		data[i] = opts.BarData{Value: counts[date]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: chartTitle, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    chartTitle,
			Subtitle: fmt.Sprintf("%d files", len(records)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "Created",
			AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Files"}),
	)
	bar.SetXAxis(labels).AddSeries("Files", data)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
