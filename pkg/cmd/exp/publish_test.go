package exp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/publish"
	"github.com/xynehq/xyne-report/internal/report"
)

type fakePublisher struct {
	runID     string
	report    *report.Report
	artifacts []publish.Artifact
}

func (f *fakePublisher) Publish(_ context.Context, runID string, re *report.Report, artifacts ...publish.Artifact) ([]string, error) {
	f.runID, f.report, f.artifacts = runID, re, artifacts
	return nil, nil
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "reports/test-execution-report-run-1-2024-05-17_10-30-00.pdf", want: "test-execution-report"},
		{path: "test-execution-index-run-1-2024-05-17_10-30-00.xlsx", want: "test-execution-index"},
		{path: "/tmp/test-execution-charts-run-1-2024-05-17_10-30-00.html", want: "test-execution-charts"},
		{path: "notes.txt", want: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, kindOf(tt.path))
		})
	}
}

func TestPublishFiles(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "test-execution-report-run-1-2024-05-17_10-30-00.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	p := &fakePublisher{}
	require.NoError(t, publishFiles(context.Background(), p, &publishInput{runID: "run-1", files: []string{pdf}}))
	assert.Equal(t, "run-1", p.runID)
	assert.Nil(t, p.report)
	assert.Equal(t, []publish.Artifact{{Path: pdf, Kind: "test-execution-report"}}, p.artifacts)

	p = &fakePublisher{}
	err := publishFiles(context.Background(), p, &publishInput{runID: "run-1", files: []string{pdf, filepath.Join(dir, "missing.pdf")}})
	assert.Equal(t, errs.ExitPersist, errs.ExitCode(err))
	assert.Empty(t, p.artifacts)
}
