package outwriter

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/huangsam/pulse/schema"
)

// categoryColors keeps a category on the same color across panels.
var categoryColors = map[schema.Category]string{
	schema.CommitCategory:       "#5470c6",
	schema.MergeRequestCategory: "#91cc75",
}

// buildPanelChart draws one line per enabled category of the panel.
func buildPanelChart(result *schema.SeriesResult, p schema.PanelSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Panel " + p.PanelID,
			Subtitle: fmt.Sprintf("%s, %s buckets", result.Project.DisplayName(), result.Granularity),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Events", MinInterval: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}, opts.DataZoom{Type: "inside"}),
	)

	labels := make([]string, len(p.Buckets))
	for i, b := range p.Buckets {
		labels[i] = schema.BucketLabel(b.Start, result.Granularity)
	}
	line.SetXAxis(labels)

	for _, c := range p.Enabled {
		counts := p.CountsOf(c)
		data := make([]opts.LineData, len(counts))
		for i, n := range counts {
			data[i] = opts.LineData{Value: n}
		}
		line.AddSeries(c.DisplayName(), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: categoryColors[c]}),
		)
	}
	return line
}

// buildSeriesPage lays out one chart per panel on a single page.
func buildSeriesPage(result *schema.SeriesResult) *components.Page {
	page := components.NewPage()
	page.PageTitle = "pulse: " + result.Project.DisplayName()
	for _, p := range result.Panels {
		page.AddCharts(buildPanelChart(result, p))
	}
	return page
}

// writeSeriesHTML renders the overlay charts as a standalone HTML page.
func writeSeriesHTML(w io.Writer, result *schema.SeriesResult) error {
	if err := buildSeriesPage(result).Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
