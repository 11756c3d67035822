// Package chart renders the charts page of a run.
package chart

import (
	"bytes"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
)

const (
	Kind = "test-execution-charts"

	// Fixed chart ids, generated ones would change on every render.
	ChartIDOutcomes   = "chart_outcomes"
	ChartIDPriorities = "chart_priorities"
	ChartIDDurations  = "chart_durations"
)

// Renderer renders the charts page with go-echarts.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Kind() string      { return Kind }
func (r *Renderer) Extension() string { return "html" }

// Render validates the report and writes the charts page into w.
func (r *Renderer) Render(w io.Writer, re *report.Report) error {
	if err := re.Validate(); err != nil {
		return err
	}
	page := components.NewPage()
	page.PageTitle = "Test Execution Charts " + re.Meta.RunID
	page.AddCharts(outcomesChart(re), prioritiesChart(re))
	if re.HasComparison() {
		page.AddCharts(durationsChart(re))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to render charts")}
	}
	_, err := buf.WriteTo(w)
	return err
}

func moduleNames(re *report.Report) []string {
	names := make([]string, 0, len(re.Modules))
	for i := range re.Modules {
		names = append(names, re.Modules[i].Summary.ModuleName)
	}
	return names
}

func newBar(id, title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: id, Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
	)
	return bar
}

func barData(values []int) []opts.BarData {
	data := make([]opts.BarData, 0, len(values))
	for _, v := range values {
		data = append(data, opts.BarData{Value: v})
	}
	return data
}

// outcomesChart stacks passed, failed and skipped tests per module.
func outcomesChart(re *report.Report) *charts.Bar {
	bar := newBar(ChartIDOutcomes, "Test outcomes by module", "Run "+re.Meta.RunID)
	var passed, failed, skipped []int
	for i := range re.Modules {
		ms := &re.Modules[i].Summary
		passed = append(passed, ms.TestsPassed)
		failed = append(failed, ms.TestsFailed)
		skipped = append(skipped, ms.TestsSkipped)
	}
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "outcomes"})
	bar.SetXAxis(moduleNames(re)).
		AddSeries("Passed", barData(passed), stack).
		AddSeries("Failed", barData(failed), stack).
		AddSeries("Skipped", barData(skipped), stack)
	return bar
}

// prioritiesChart stacks the failed tests of each module by priority.
func prioritiesChart(re *report.Report) *charts.Bar {
	bar := newBar(ChartIDPriorities, "Failed tests by priority", "Run "+re.Meta.RunID)
	var highest, high, medium, low []int
	for i := range re.Modules {
		ms := &re.Modules[i].Summary
		highest = append(highest, ms.HighestPriorityFailed)
		high = append(high, ms.HighPriorityFailed)
		medium = append(medium, ms.MediumPriorityFailed)
		low = append(low, ms.LowPriorityFailed)
	}
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "priorities"})
	bar.SetXAxis(moduleNames(re)).
		AddSeries("Highest", barData(highest), stack).
		AddSeries("High", barData(high), stack).
		AddSeries("Medium", barData(medium), stack).
		AddSeries("Low", barData(low), stack)
	return bar
}

// durationsChart shows, per compared module, the sum of the duration
// changes of the tests timed in both runs, in seconds.
func durationsChart(re *report.Report) *charts.Bar {
	bar := newBar(ChartIDDurations, "Duration change by module (s)", re.ComparisonLabel())
	var names []string
	var data []opts.BarData
	for i := range re.Modules {
		entry := &re.Modules[i]
		if entry.Delta == nil {
			continue
		}
		names = append(names, entry.Summary.ModuleName)
		data = append(data, opts.BarData{Value: ModuleDurationDelta(entry)})
	}
	bar.SetXAxis(names).AddSeries("Duration change", data)
	return bar
}

// ModuleDurationDelta sums the duration deltas of a module, in seconds
// rounded to the millisecond.
func ModuleDurationDelta(entry *report.ModuleEntry) float64 {
	var total float64
	for _, td := range entry.Tests {
		if td.DeltaMs != nil {
			total += *td.DeltaMs
		}
	}
	return math.Round(total) / 1000
}
