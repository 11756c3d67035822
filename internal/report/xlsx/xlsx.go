// Package xlsx renders the spreadsheet index of a run, one sheet per view:
// summary, modules, tests, failures and the comparison with the previous run.
package xlsx

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
)

const (
	Kind = "test-execution-index"

	SheetSummary    = "summary"
	SheetModules    = "modules"
	SheetTests      = "tests"
	SheetFailures   = "failures"
	SheetComparison = "comparison"

	defaultSheet = "Sheet1"
)

// Renderer renders the report as an xlsx workbook.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Kind() string      { return Kind }
func (r *Renderer) Extension() string { return "xlsx" }

// Render validates the report and writes the workbook into w.
func (r *Renderer) Render(w io.Writer, re *report.Report) error {
	if err := re.Validate(); err != nil {
		return err
	}
	sheet := excelize.NewFile()
	defer func() {
		if err := sheet.Close(); err != nil {
			log.Debugf("xlsx: unable to close workbook: %v", err)
		}
	}()

	if err := build(sheet, re); err != nil {
		return &errs.RenderError{Err: err}
	}
	var buf bytes.Buffer
	if err := sheet.Write(&buf); err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to write workbook")}
	}
	_, err := buf.WriteTo(w)
	return err
}

func build(sheet *excelize.File, re *report.Report) error {
	created := re.Meta.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")
	if err := sheet.SetDocProps(&excelize.DocProperties{
		Title:    "Test Execution Index " + re.Meta.RunID,
		Creator:  "xyne-report",
		Created:  created,
		Modified: created,
	}); err != nil {
		return errors.Wrap(err, "unable to set document properties")
	}
	if err := sheet.SetSheetName(defaultSheet, SheetSummary); err != nil {
		return err
	}
	headerStyle, err := sheet.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return errors.Wrap(err, "unable to create header style")
	}

	ix := &index{sheet: sheet, headerStyle: headerStyle}
	ix.summary(re)
	ix.modules(re)
	ix.tests(re)
	ix.failures(re)
	if re.HasComparison() {
		ix.comparison(re)
	}
	if ix.err != nil {
		return ix.err
	}
	sheet.SetActiveSheet(0)
	return nil
}

// index writes the sheets, keeping the first error.
type index struct {
	sheet       *excelize.File
	headerStyle int
	err         error
}

func (ix *index) check(err error) {
	if err != nil && ix.err == nil {
		ix.err = err
	}
}

func (ix *index) newSheet(name string, widths map[string]float64, header ...any) {
	if name != SheetSummary {
		_, err := ix.sheet.NewSheet(name)
		ix.check(err)
	}
	ix.row(name, 1, header...)
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		ix.check(err)
		ix.check(ix.sheet.SetCellStyle(name, "A1", last, ix.headerStyle))
	}
	cols := make([]string, 0, len(widths))
	for col := range widths {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		ix.check(ix.sheet.SetColWidth(name, col, col, widths[col]))
	}
}

func (ix *index) row(name string, n int, values ...any) {
	cell, err := excelize.CoordinatesToCellName(1, n)
	ix.check(err)
	ix.check(ix.sheet.SetSheetRow(name, cell, &values))
}

func (ix *index) summary(re *report.Report) {
	ix.newSheet(SheetSummary, map[string]float64{"A": 22, "B": 40}, "Field", "Value")
	s := re.Summary
	rows := [][]any{
		{"Run ID", re.Meta.RunID},
		{"Version", re.Meta.Version},
		{"Environment", re.Meta.Environment},
		{"Run By", re.Meta.RunBy},
		{"Previous Run ID", re.Meta.PreviousRunID},
		{"Previous Version", re.Meta.PreviousVersion},
		{"Generated At", re.Meta.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Modules", s.ModuleCount},
		{"Total Tests", s.TotalTests},
		{"Passed", s.TotalPassed},
		{"Failed", s.TotalFailed},
		{"Skipped", s.TotalSkipped},
		{"Pass Rate (%)", s.PassRate},
	}
	if st := re.Stats; st != nil {
		rows = append(rows,
			[]any{"Timed Tests", st.Count},
			[]any{"Total Duration (s)", seconds(st.Total)},
			[]any{"Mean Duration (s)", seconds(st.Mean)},
			[]any{"Median Duration (s)", seconds(st.Median)},
			[]any{"P90 Duration (s)", seconds(st.P90)},
			[]any{"Max Duration (s)", seconds(st.Max)},
		)
	}
	for i, r := range rows {
		ix.row(SheetSummary, i+2, r...)
	}
}

func (ix *index) modules(re *report.Report) {
	ix.newSheet(SheetModules, map[string]float64{"A": 30, "L": 50},
		"Module", "State", "Total Run", "Passed", "Failed", "Skipped", "Unknown",
		"Highest Priority Failed", "High Priority Failed", "Medium Priority Failed", "Low Priority Failed",
		"Report")
	for i := range re.Modules {
		ms := &re.Modules[i].Summary
		n := i + 2
		ix.row(SheetModules, n, ms.ModuleName, ms.State(), ms.TestsRun, ms.TestsPassed, ms.TestsFailed,
			ms.TestsSkipped, ms.TestsUnknown, ms.HighestPriorityFailed, ms.HighPriorityFailed,
			ms.MediumPriorityFailed, ms.LowPriorityFailed, ms.ExternalReportLink)
		if ms.ExternalReportLink != "" {
			ix.check(ix.sheet.SetCellHyperLink(SheetModules, fmt.Sprintf("L%d", n), ms.ExternalReportLink, "External"))
		}
	}
}

func (ix *index) tests(re *report.Report) {
	ix.newSheet(SheetTests, map[string]float64{"A": 30, "B": 60},
		"Module", "Test", "Status", "Priority", "Duration (s)", "Previous (s)", "Diff (s)", "Change (%)", "Trend")
	n := 2
	for i := range re.Modules {
		entry := &re.Modules[i]
		for j, o := range entry.Summary.Outcomes {
			values := []any{entry.Summary.ModuleName, o.Name, string(o.Status), string(o.Priority), optSeconds(o.DurationMs)}
			if j < len(entry.Tests) {
				td := entry.Tests[j]
				values = append(values, optSeconds(td.PreviousMs), optSeconds(td.DeltaMs), optRound(td.PercentChange), string(td.Class))
			}
			ix.row(SheetTests, n, values...)
			n++
		}
	}
}

func (ix *index) failures(re *report.Report) {
	ix.newSheet(SheetFailures, map[string]float64{"B": 30, "C": 60, "F": 30},
		"Index", "Module", "Test", "Priority", "Duration (s)", "Notes_Review")
	for i, f := range re.FailedOutcomes() {
		ix.row(SheetFailures, i+2, i+1, f.Module, f.Name, string(f.Priority), optSeconds(f.DurationMs), "")
	}
}

func (ix *index) comparison(re *report.Report) {
	ix.newSheet(SheetComparison, map[string]float64{"A": 30},
		"Module", "Passed (previous)", "Passed (current)", "Passed (delta)",
		"Failed (previous)", "Failed (current)", "Failed (delta)",
		"Skipped (previous)", "Skipped (current)", "Skipped (delta)")
	n := 2
	for i := range re.Modules {
		d := re.Modules[i].Delta
		if d == nil {
			continue
		}
		ix.row(SheetComparison, n, d.ModuleName,
			d.Passed.Previous, d.Passed.Current, d.Passed.Delta,
			d.Failed.Previous, d.Failed.Current, d.Failed.Delta,
			d.Skipped.Previous, d.Skipped.Current, d.Skipped.Delta)
		n++
	}
}

func seconds(ms float64) float64 {
	return roundTo(ms/1000, 3)
}

// optSeconds returns an empty cell for missing durations.
func optSeconds(ms *float64) any {
	if ms == nil {
		return ""
	}
	return seconds(*ms)
}

func optRound(v *float64) any {
	if v == nil {
		return ""
	}
	return roundTo(*v, 1)
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
