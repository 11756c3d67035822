package report

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/summary"
)

var testGeneratedAt = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func testModules() (current, previous []summary.ModuleSummary) {
	current = []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "valid login", Status: summary.StatusPassed, DurationMs: ptr.To(1200.0)},
			{Name: "invalid login", Status: summary.StatusFailed, Priority: summary.PriorityHighest, DurationMs: ptr.To(800.0)},
		}, summary.ModuleMeta{}),
		summary.Aggregate("payments", []summary.TestOutcome{
			{Name: "pay", Status: summary.StatusPassed},
		}, summary.ModuleMeta{}),
	}
	previous = []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "valid login", Status: summary.StatusPassed, DurationMs: ptr.To(1000.0)},
			{Name: "invalid login", Status: summary.StatusPassed, DurationMs: ptr.To(800.0)},
		}, summary.ModuleMeta{}),
	}
	return current, previous
}

func testReport() *Report {
	current, previous := testModules()
	return Build(Metadata{
		RunID: "run-2", PreviousRunID: "run-1", PreviousVersion: "v1.1.0",
		Version: "v1.2.0", Environment: "sandbox", GeneratedAt: testGeneratedAt,
	}, current, compare.Run("run-1", current, previous))
}

func TestBuild(t *testing.T) {
	re := testReport()

	assert.Equal(t, summary.RunSummary{
		TotalTests: 3, TotalPassed: 2, TotalFailed: 1, TotalSkipped: 0, PassRate: 67, ModuleCount: 2,
	}, re.Summary)
	require.Len(t, re.Modules, 2)

	login := re.Modules[0]
	require.NotNil(t, login.Delta)
	assert.Equal(t, compare.Worse, login.Delta.Failed.Class)
	require.Len(t, login.Tests, 2)
	assert.Equal(t, ptr.To(200.0), login.Tests[0].DeltaMs)

	payments := re.Modules[1]
	assert.Nil(t, payments.Delta)
	assert.Nil(t, payments.Tests)

	assert.True(t, re.HasComparison())
	require.NotNil(t, re.Stats)
	assert.Equal(t, 2, re.Stats.Count)
	assert.NoError(t, re.Validate())

	failed := re.FailedOutcomes()
	require.Len(t, failed, 1)
	assert.Equal(t, "login", failed[0].Module)
	assert.Equal(t, "invalid login", failed[0].Name)
}

func TestBuildWithoutComparison(t *testing.T) {
	current, _ := testModules()
	re := Build(Metadata{RunID: "run-1"}, current, nil)

	assert.False(t, re.HasComparison())
	for _, m := range re.Modules {
		assert.Nil(t, m.Delta)
	}
	assert.NoError(t, re.Validate())
	assert.Equal(t, "Comparing with: Previous Run", re.ComparisonLabel())
}

func TestBuildEmpty(t *testing.T) {
	re := Build(Metadata{RunID: "run-1"}, nil, nil)
	assert.Equal(t, summary.RunSummary{}, re.Summary)
	assert.Nil(t, re.Stats)
	assert.NoError(t, re.Validate())
}

func TestComparisonLabel(t *testing.T) {
	assert.Equal(t, "Comparing with: v1.1.0 (Run: run-1)", testReport().ComparisonLabel())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(re *Report)
		want   string
	}{
		{
			name:   "delta of another module",
			mutate: func(re *Report) { re.Modules[0].Delta.ModuleName = "payments" },
			want:   `carries the delta of module "payments"`,
		},
		{
			name:   "duplicated module",
			mutate: func(re *Report) { re.Modules[1].Summary.ModuleName = "login" },
			want:   "listed more than once",
		},
		{
			name:   "summary out of date",
			mutate: func(re *Report) { re.Summary.TotalFailed = 0 },
			want:   "does not match its modules",
		},
		{
			name:   "test deltas without module delta",
			mutate: func(re *Report) { re.Modules[0].Delta = nil },
			want:   "test deltas without a module delta",
		},
		{
			name:   "test deltas count",
			mutate: func(re *Report) { re.Modules[0].Tests = re.Modules[0].Tests[:1] },
			want:   "1 test deltas for 2 outcomes",
		},
		{
			name: "counters do not add up",
			mutate: func(re *Report) {
				re.Modules[1].Summary.TestsRun = 5
				re.Summary = summary.Reduce([]summary.ModuleSummary{re.Modules[0].Summary, re.Modules[1].Summary})
			},
			want: "do not add up to 5 tests",
		},
		{
			name:   "missing run id",
			mutate: func(re *Report) { re.Meta.RunID = "" },
			want:   "without run id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := testReport()
			tt.mutate(re)
			err := re.Validate()
			require.Error(t, err)
			var renderErr *errs.RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, errs.ExitRender, errs.ExitCode(err))
		})
	}
}

func TestShowJSON(t *testing.T) {
	re := testReport()
	out, err := re.ShowJSON()
	require.NoError(t, err)

	got := Report{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, re.Summary, got.Summary)
	assert.Equal(t, "run-2", got.Meta.RunID)
	assert.NotContains(t, out, `"runtime"`)
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		want  string
	}{
		{name: "plain", runID: "run-42", want: "test-execution-report-run-42-2024-05-17_10-30-00.html"},
		{name: "path separators", runID: "../etc/passwd", want: "test-execution-report-.._etc_passwd-2024-05-17_10-30-00.html"},
		{name: "spaces", runID: "nightly run 1", want: "test-execution-report-nightly_run_1-2024-05-17_10-30-00.html"},
		{name: "dot only", runID: "..", want: "test-execution-report-run-2024-05-17_10-30-00.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtifactName("test-execution-report", tt.runID, "html", testGeneratedAt))
		})
	}
}

func TestSaveArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := SaveArtifact(dir, "test-execution-report", "run-1", "html", testGeneratedAt, func(w io.Writer) error {
		_, err := io.WriteString(w, "<html></html>")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test-execution-report-run-1-2024-05-17_10-30-00.html"), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveArtifactRenderFailure(t *testing.T) {
	dir := t.TempDir()
	renderErr := &errs.RenderError{Err: errors.New("boom")}

	_, err := SaveArtifact(dir, "test-execution-report", "run-1", "pdf", testGeneratedAt, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return renderErr
	})
	assert.ErrorIs(t, err, renderErr)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveArtifactPersistFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := SaveArtifact(file, "k", "r", "html", testGeneratedAt, func(w io.Writer) error { return nil })
	require.Error(t, err)
	assert.Equal(t, errs.ExitPersist, errs.ExitCode(err))
}

type stubRenderer struct{}

func (stubRenderer) Kind() string      { return "stub" }
func (stubRenderer) Extension() string { return "txt" }
func (stubRenderer) Render(w io.Writer, re *Report) error {
	_, err := io.WriteString(w, strings.ToUpper(re.Meta.RunID))
	return err
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, stubRenderer{}, testReport())
	require.NoError(t, err)
	assert.Equal(t, "stub-run-2-2024-05-17_10-30-00.txt", filepath.Base(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RUN-2", string(content))
}
