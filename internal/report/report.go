// Package report holds the data contract shared by every renderer: the run
// metadata, the run summary and the modules annotated with their comparison.
//
// The report is built once from the fetched data and never modified by the
// renderers, which only turn it into bytes:
// - Build: aggregate and compare the fetched modules
// - Validate: reject inconsistent input before rendering
// - Render: html, pdf, xlsx, charts, console and json outputs
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/metrics"
	"github.com/xynehq/xyne-report/internal/summary"
)

// Metadata identifies the run a report was built for.
type Metadata struct {
	RunID           string    `json:"runId"`
	Environment     string    `json:"environment,omitempty"`
	Version         string    `json:"version,omitempty"`
	PreviousVersion string    `json:"previousVersion,omitempty"`
	PreviousRunID   string    `json:"previousRunId,omitempty"`
	RunBy           string    `json:"runBy,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// ModuleEntry is a module summary with its comparison, when the module was
// also part of the previous run.
type ModuleEntry struct {
	Summary summary.ModuleSummary `json:"summary"`
	Delta   *compare.ModuleDelta  `json:"delta,omitempty"`
	Tests   []compare.TestDelta   `json:"tests,omitempty"`
}

// Report is the input of every renderer.
type Report struct {
	Meta    Metadata               `json:"meta"`
	Summary summary.RunSummary     `json:"summary"`
	Modules []ModuleEntry          `json:"modules"`
	Stats   *summary.DurationStats `json:"stats,omitempty"`

	// Timers is only filled for the json output.
	Timers *metrics.Timers `json:"runtime,omitempty"`
}

// Renderer turns a report into the bytes of one artifact kind.
type Renderer interface {
	// Kind is the artifact name prefix, e.g. test-execution-report.
	Kind() string
	// Extension is the artifact file extension, without dot.
	Extension() string
	Render(w io.Writer, re *Report) error
}

// Build assembles the report of a run. rc may be nil when the run has no
// previous run to compare with.
func Build(meta Metadata, modules []summary.ModuleSummary, rc *compare.RunComparison) *Report {
	re := &Report{
		Meta:    meta,
		Summary: summary.Reduce(modules),
		Modules: make([]ModuleEntry, 0, len(modules)),
		Stats:   summary.DurationStatsOf(modules),
	}
	for _, ms := range modules {
		entry := ModuleEntry{Summary: ms}
		if mc := rc.For(ms.ModuleName); mc != nil {
			delta := mc.Delta
			entry.Delta = &delta
			entry.Tests = mc.Tests
		}
		re.Modules = append(re.Modules, entry)
	}
	return re
}

// HasComparison reports whether any module carries a comparison.
func (re *Report) HasComparison() bool {
	for i := range re.Modules {
		if re.Modules[i].Delta != nil {
			return true
		}
	}
	return false
}

// ComparisonLabel is the header line naming the run compared with.
func (re *Report) ComparisonLabel() string {
	if re.Meta.PreviousVersion != "" && re.Meta.PreviousRunID != "" {
		return "Comparing with: " + re.Meta.PreviousVersion + " (Run: " + re.Meta.PreviousRunID + ")"
	}
	return "Comparing with: Previous Run"
}

// FailedOutcomes lists every failed test of the run with its module, in
// module then outcome order.
func (re *Report) FailedOutcomes() []FailedOutcome {
	var failed []FailedOutcome
	for i := range re.Modules {
		for _, o := range re.Modules[i].Summary.Outcomes {
			if o.Status == summary.StatusFailed {
				failed = append(failed, FailedOutcome{Module: re.Modules[i].Summary.ModuleName, TestOutcome: o})
			}
		}
	}
	return failed
}

// FailedOutcome is a failed test and the module it belongs to.
type FailedOutcome struct {
	Module string
	summary.TestOutcome
}

// ShowJSON returns the indented JSON document of the report.
func (re *Report) ShowJSON() (string, error) {
	val, err := json.MarshalIndent(re, "", "    ")
	if err != nil {
		return "", err
	}
	return string(val), nil
}
