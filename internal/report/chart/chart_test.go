package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/summary"
)

func testReport(withPrevious bool) *report.Report {
	current := []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "a", Status: summary.StatusPassed, DurationMs: ptr.To(1200.0)},
			{Name: "b", Status: summary.StatusFailed, Priority: summary.PriorityHigh, DurationMs: ptr.To(500.0)},
		}, summary.ModuleMeta{}),
		summary.Aggregate("payments", []summary.TestOutcome{
			{Name: "pay", Status: summary.StatusSkipped},
		}, summary.ModuleMeta{}),
	}
	meta := report.Metadata{RunID: "run-2", GeneratedAt: time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)}
	if !withPrevious {
		return report.Build(meta, current, nil)
	}
	previous := []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "a", Status: summary.StatusPassed, DurationMs: ptr.To(1000.0)},
			{Name: "b", Status: summary.StatusPassed, DurationMs: ptr.To(800.0)},
		}, summary.ModuleMeta{}),
	}
	meta.PreviousRunID = "run-1"
	return report.Build(meta, current, compare.Run("run-1", current, previous))
}

func render(t *testing.T, re *report.Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, re))
	return buf.String()
}

func TestRender(t *testing.T) {
	out := render(t, testReport(true))

	for _, want := range []string{ChartIDOutcomes, ChartIDPriorities, ChartIDDurations, "login", "payments", "Test Execution Charts run-2"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderWithoutComparison(t *testing.T) {
	out := render(t, testReport(false))

	assert.Contains(t, out, ChartIDOutcomes)
	assert.NotContains(t, out, ChartIDDurations)
}

func TestRenderDeterministic(t *testing.T) {
	assert.Equal(t, render(t, testReport(true)), render(t, testReport(true)))
}

func TestRenderInvalid(t *testing.T) {
	re := testReport(false)
	re.Modules = append(re.Modules, re.Modules[0])

	var buf bytes.Buffer
	err := New().Render(&buf, re)
	assert.Equal(t, errs.ExitRender, errs.ExitCode(err))
}

func TestModuleDurationDelta(t *testing.T) {
	re := testReport(true)
	// +200ms and -300ms
	assert.InDelta(t, -0.1, ModuleDurationDelta(&re.Modules[0]), 1e-9)
	assert.Zero(t, ModuleDurationDelta(&re.Modules[1]))
}
