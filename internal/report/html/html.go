// Package html renders the interactive HTML document of a run.
package html

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"regexp"

	"github.com/pkg/errors"

	"github.com/xynehq/xyne-report/internal/assets"
	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/summary"
)

const (
	Kind         = "test-execution-report"
	TemplatePath = "templates/report/report.html"

	notAvailable = "N/A"
	dateLayout   = "2006-01-02 15:04:05 MST"
)

// Renderer renders the report with the embedded HTML template.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Kind() string      { return Kind }
func (r *Renderer) Extension() string { return "html" }

// Render validates the report and executes the template into w.
func (r *Renderer) Render(w io.Writer, re *report.Report) error {
	if err := re.Validate(); err != nil {
		return err
	}
	raw, err := assets.ReadFile(TemplatePath)
	if err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to load template")}
	}
	tmpl, err := template.New("report").Delims("[[", "]]").Parse(string(raw))
	if err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to parse template")}
	}

	// Executing into a buffer keeps a failed render out of w.
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newView(re)); err != nil {
		return &errs.RenderError{Err: errors.Wrap(err, "unable to execute template")}
	}
	_, err = buf.WriteTo(w)
	return err
}

type view struct {
	Title       string
	RunID       string
	Version     string
	Environment string
	RunBy       string
	GeneratedAt string
	Comparison  string
	Summary     summary.RunSummary
	Stats       *statsView
	Modules     []moduleView
	Data        *report.Report
}

type statsView struct {
	Count  int
	Total  string
	Mean   string
	Median string
	P90    string
	Max    string
}

type moduleView struct {
	Name     string
	State    string
	Summary  summary.ModuleSummary
	HasDelta bool
	Passed   string
	Failed   string
	Skipped  string
	Tests    []testRow
	Link     string
}

type testRow struct {
	Name      string
	Status    string
	Priority  string
	Current   string
	Previous  string
	Diff      string
	DiffClass string
}

func newView(re *report.Report) *view {
	v := &view{
		Title:       "Test Execution Report",
		RunID:       re.Meta.RunID,
		Version:     orNA(re.Meta.Version),
		Environment: orNA(re.Meta.Environment),
		RunBy:       re.Meta.RunBy,
		GeneratedAt: re.Meta.GeneratedAt.Format(dateLayout),
		Summary:     re.Summary,
		Modules:     make([]moduleView, 0, len(re.Modules)),
		Data:        re,
	}
	if re.HasComparison() {
		v.Comparison = re.ComparisonLabel()
	}
	if st := re.Stats; st != nil {
		v.Stats = &statsView{
			Count:  st.Count,
			Total:  seconds(&st.Total),
			Mean:   seconds(&st.Mean),
			Median: seconds(&st.Median),
			P90:    seconds(&st.P90),
			Max:    seconds(&st.Max),
		}
	}
	for i := range re.Modules {
		v.Modules = append(v.Modules, newModuleView(&re.Modules[i]))
	}
	return v
}

func newModuleView(entry *report.ModuleEntry) moduleView {
	ms := entry.Summary
	mv := moduleView{
		Name:    ms.ModuleName,
		State:   ms.State(),
		Summary: ms,
		Link:    ms.ExternalReportLink,
		Tests:   make([]testRow, 0, len(ms.Outcomes)),
	}
	if entry.Delta != nil {
		mv.HasDelta = true
		mv.Passed = MetricComparison(entry.Delta.Passed)
		mv.Failed = MetricComparison(entry.Delta.Failed)
		mv.Skipped = MetricComparison(entry.Delta.Skipped)
	}
	for i, o := range ms.Outcomes {
		row := testRow{
			Name:      o.Name,
			Status:    string(o.Status),
			Priority:  string(o.Priority),
			Current:   seconds(o.DurationMs),
			Previous:  notAvailable,
			Diff:      notAvailable,
			DiffClass: string(compare.NotApplicable),
		}
		if i < len(entry.Tests) {
			td := entry.Tests[i]
			row.Previous = seconds(td.PreviousMs)
			row.Diff = DurationDiff(td)
			row.DiffClass = string(td.Class)
		}
		mv.Tests = append(mv.Tests, row)
	}
	return mv
}

// MetricComparison formats a counter delta as "prev → cur (+d)".
func MetricComparison(md compare.MetricDelta) string {
	return fmt.Sprintf("%d → %d (%+d)", md.Previous, md.Current, md.Delta)
}

// DurationDiff formats a test delta as "+1.20s (20.0%)", "N/A" without a
// baseline.
func DurationDiff(td compare.TestDelta) string {
	if td.DeltaMs == nil {
		return notAvailable
	}
	diff := fmt.Sprintf("%+.2fs", *td.DeltaMs/1000)
	if td.PercentChange != nil {
		diff += fmt.Sprintf(" (%.1f%%)", *td.PercentChange)
	}
	return diff
}

func seconds(ms *float64) string {
	if ms == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2fs", *ms/1000)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

var reportDataRe = regexp.MustCompile(`(?s)<script type="application/json" id="report-data">(.*?)</script>`)

// ExtractReport reads back the report embedded in a rendered document.
func ExtractReport(doc []byte) (*report.Report, error) {
	m := reportDataRe.FindSubmatch(doc)
	if m == nil {
		return nil, errors.New("report data not found in document")
	}
	re := &report.Report{}
	if err := json.Unmarshal(m[1], re); err != nil {
		return nil, errors.Wrap(err, "invalid report data")
	}
	return re, nil
}
