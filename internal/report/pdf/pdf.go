// Package pdf renders the printable document of a run.
package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/summary"
)

const (
	Kind = "test-execution-report"

	fontFamily  = "Helvetica"
	lineHeight  = 7.0
	pageWidth   = 190.0
	dateLayout  = "2006-01-02 15:04:05"
	reportLabel = "View"
)

type rgb struct{ r, g, b int }

var (
	colorHeader  = rgb{31, 58, 95}
	colorHighest = rgb{248, 215, 218}
	colorHigh    = rgb{255, 228, 204}
	colorMedium  = rgb{255, 243, 205}
	colorLow     = rgb{255, 250, 230}
	colorPassed  = rgb{230, 244, 234}
	colorBlank   = rgb{255, 255, 255}
	colorLink    = rgb{13, 110, 253}
	colorText    = rgb{31, 41, 51}
)

// Renderer renders the report as an A4 PDF document.
type Renderer struct {
	// Compress enables stream compression, disabled to inspect the output.
	Compress bool
}

func New() *Renderer { return &Renderer{Compress: true} }

func (r *Renderer) Kind() string      { return Kind }
func (r *Renderer) Extension() string { return "pdf" }

// Render validates the report and writes the document into w.
func (r *Renderer) Render(w io.Writer, re *report.Report) error {
	if err := re.Validate(); err != nil {
		return err
	}
	doc := newDocument(re, r.Compress)
	doc.title()
	doc.executionSummary()
	doc.moduleDetails()
	if re.HasComparison() {
		doc.comparison()
	}
	doc.failedTests()

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to build pdf")}
	}
	_, err := buf.WriteTo(w)
	return err
}

type document struct {
	pdf *fpdf.Fpdf
	re  *report.Report
	tr  func(string) string
}

func newDocument(re *report.Report, compress bool) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(re.Meta.GeneratedAt)
	pdf.SetModificationDate(re.Meta.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(compress)
	pdf.SetTitle("Test Execution Report "+re.Meta.RunID, true)
	pdf.SetCreator("xyne-report", true)
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return &document{pdf: pdf, re: re, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) setFill(c rgb) { d.pdf.SetFillColor(c.r, c.g, c.b) }
func (d *document) setText(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }

func (d *document) title() {
	meta := d.re.Meta
	d.setText(colorText)
	d.pdf.SetFont(fontFamily, "B", 18)
	d.pdf.CellFormat(pageWidth, 10, "Test Execution Report", "", 1, "C", false, 0, "")
	d.pdf.SetFont(fontFamily, "", 11)
	d.pdf.CellFormat(pageWidth, lineHeight, d.tr("CRON Run ID: "+meta.RunID), "", 1, "C", false, 0, "")
	line := fmt.Sprintf("Date: %s | Environment: %s", meta.GeneratedAt.Format(dateLayout), orNA(meta.Environment))
	d.pdf.CellFormat(pageWidth, lineHeight, d.tr(line), "", 1, "C", false, 0, "")
	d.pdf.CellFormat(pageWidth, lineHeight, d.tr("Version: "+orNA(meta.Version)), "", 1, "C", false, 0, "")
	if d.re.HasComparison() {
		d.pdf.SetFont(fontFamily, "I", 10)
		d.pdf.CellFormat(pageWidth, lineHeight, d.tr(d.re.ComparisonLabel()), "", 1, "C", false, 0, "")
	}
	d.pdf.Ln(4)
}

func (d *document) section(name string) {
	d.setText(colorText)
	d.pdf.SetFont(fontFamily, "B", 13)
	d.pdf.CellFormat(pageWidth, 9, name, "", 1, "L", false, 0, "")
}

func (d *document) header(widths []float64, cols []string) {
	d.setFill(colorHeader)
	d.setText(colorBlank)
	d.pdf.SetFont(fontFamily, "B", 9)
	for i, col := range cols {
		d.pdf.CellFormat(widths[i], lineHeight, col, "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.setText(colorText)
	d.pdf.SetFont(fontFamily, "", 9)
}

func (d *document) executionSummary() {
	s := d.re.Summary
	d.section("Execution Summary")
	widths := []float64{31, 32, 32, 32, 31, 32}
	d.header(widths, []string{"Modules", "Total Tests", "Passed", "Failed", "Skipped", "Pass Rate"})
	d.setFill(colorBlank)
	for i, v := range []string{
		fmt.Sprint(s.ModuleCount), fmt.Sprint(s.TotalTests), fmt.Sprint(s.TotalPassed),
		fmt.Sprint(s.TotalFailed), fmt.Sprint(s.TotalSkipped), fmt.Sprintf("%d%%", s.PassRate),
	} {
		d.pdf.CellFormat(widths[i], lineHeight, v, "1", 0, "C", false, 0, "")
	}
	d.pdf.Ln(-1)
	if st := d.re.Stats; st != nil {
		d.pdf.SetFont(fontFamily, "", 8)
		line := fmt.Sprintf("Timed tests: %d | Total: %.2fs | Mean: %.2fs | Median: %.2fs | P90: %.2fs",
			st.Count, st.Total/1000, st.Mean/1000, st.Median/1000, st.P90/1000)
		d.pdf.CellFormat(pageWidth, 6, line, "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(4)
}

func (d *document) moduleDetails() {
	d.section("Module Details")
	widths := []float64{52, 20, 20, 40, 20, 38}
	d.header(widths, []string{"Module", "Total Run", "Passed", "Failed (HHP/HP/MP/LP)", "Skipped", "Report"})
	for i := range d.re.Modules {
		ms := &d.re.Modules[i].Summary
		d.setFill(rowColor(ms))
		d.pdf.CellFormat(widths[0], lineHeight, d.fit(ms.ModuleName, widths[0]), "1", 0, "L", true, 0, "")
		d.pdf.CellFormat(widths[1], lineHeight, fmt.Sprint(ms.TestsRun), "1", 0, "C", true, 0, "")
		d.pdf.CellFormat(widths[2], lineHeight, fmt.Sprint(ms.TestsPassed), "1", 0, "C", true, 0, "")
		failed := fmt.Sprintf("%d (%d/%d/%d/%d)", ms.TestsFailed,
			ms.HighestPriorityFailed, ms.HighPriorityFailed, ms.MediumPriorityFailed, ms.LowPriorityFailed)
		d.pdf.CellFormat(widths[3], lineHeight, failed, "1", 0, "C", true, 0, "")
		d.pdf.CellFormat(widths[4], lineHeight, fmt.Sprint(ms.TestsSkipped), "1", 0, "C", true, 0, "")
		if ms.ExternalReportLink != "" {
			d.setText(colorLink)
			d.pdf.CellFormat(widths[5], lineHeight, reportLabel, "1", 0, "C", true, 0, ms.ExternalReportLink)
			d.setText(colorText)
		} else {
			d.pdf.CellFormat(widths[5], lineHeight, "N/A", "1", 0, "C", true, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.pdf.SetFont(fontFamily, "I", 7)
	d.pdf.CellFormat(pageWidth, 5, "HHP: highest priority, HP: high, MP: medium, LP: low", "", 1, "L", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) comparison() {
	d.section("Comparison with Previous Run")
	widths := []float64{55, 45, 45, 45}
	d.header(widths, []string{"Module", "Passed", "Failed", "Skipped"})
	d.setFill(colorBlank)
	for i := range d.re.Modules {
		entry := &d.re.Modules[i]
		if entry.Delta == nil {
			continue
		}
		d.pdf.CellFormat(widths[0], lineHeight, d.fit(entry.Summary.ModuleName, widths[0]), "1", 0, "L", false, 0, "")
		for j, md := range []struct{ prev, cur, delta int }{
			{entry.Delta.Passed.Previous, entry.Delta.Passed.Current, entry.Delta.Passed.Delta},
			{entry.Delta.Failed.Previous, entry.Delta.Failed.Current, entry.Delta.Failed.Delta},
			{entry.Delta.Skipped.Previous, entry.Delta.Skipped.Current, entry.Delta.Skipped.Delta},
		} {
			text := fmt.Sprintf("%d -> %d (%+d)", md.prev, md.cur, md.delta)
			d.pdf.CellFormat(widths[j+1], lineHeight, text, "1", 0, "C", false, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.pdf.Ln(4)
}

func (d *document) failedTests() {
	failed := d.re.FailedOutcomes()
	if len(failed) == 0 {
		return
	}
	d.section("Failed Tests")
	widths := []float64{45, 100, 20, 25}
	d.header(widths, []string{"Module", "Test", "Priority", "Duration"})
	for _, f := range failed {
		d.setFill(priorityColor(f.Priority))
		d.pdf.CellFormat(widths[0], lineHeight, d.fit(f.Module, widths[0]), "1", 0, "L", true, 0, "")
		d.pdf.CellFormat(widths[1], lineHeight, d.fit(f.Name, widths[1]), "1", 0, "L", true, 0, "")
		d.pdf.CellFormat(widths[2], lineHeight, string(f.Priority), "1", 0, "C", true, 0, "")
		duration := "N/A"
		if f.DurationMs != nil {
			duration = fmt.Sprintf("%.2fs", *f.DurationMs/1000)
		}
		d.pdf.CellFormat(widths[3], lineHeight, duration, "1", 0, "C", true, 0, "")
		d.pdf.Ln(-1)
	}
}

// fit translates s and shortens it to the cell width.
func (d *document) fit(s string, width float64) string {
	s = d.tr(s)
	limit := width - 2
	if d.pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && d.pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// rowColor is the fill of a module row, from its worst failing priority.
func rowColor(ms *summary.ModuleSummary) rgb {
	switch {
	case ms.HighestPriorityFailed > 0:
		return colorHighest
	case ms.HighPriorityFailed > 0:
		return colorHigh
	case ms.MediumPriorityFailed > 0:
		return colorMedium
	case ms.LowPriorityFailed > 0:
		return colorLow
	case ms.TestsRun > 0 && ms.TestsPassed == ms.TestsRun:
		return colorPassed
	}
	return colorBlank
}

func priorityColor(p summary.Priority) rgb {
	switch p {
	case summary.PriorityHighest:
		return colorHighest
	case summary.PriorityHigh:
		return colorHigh
	case summary.PriorityLow:
		return colorLow
	}
	return colorMedium
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
