package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/summary"
)

func TestWrite(t *testing.T) {
	current := []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "a", Status: summary.StatusPassed},
			{Name: "b", Status: summary.StatusFailed, Priority: summary.PriorityLow},
		}, summary.ModuleMeta{}),
		summary.Aggregate("payments", []summary.TestOutcome{
			{Name: "pay", Status: summary.StatusPassed},
		}, summary.ModuleMeta{}),
	}
	previous := []summary.ModuleSummary{
		summary.Aggregate("login", []summary.TestOutcome{
			{Name: "a", Status: summary.StatusPassed},
			{Name: "b", Status: summary.StatusPassed},
		}, summary.ModuleMeta{}),
	}

	tests := []struct {
		name     string
		re       *report.Report
		want     []string
		dontWant []string
	}{
		{
			name: "with comparison",
			re: report.Build(report.Metadata{RunID: "run-2", PreviousRunID: "run-1", PreviousVersion: "v1"},
				current, compare.Run("run-1", current, previous)),
			want: []string{"run-2", "login", "payments", "0/0/0/1", "Comparing with: v1 (Run: run-1)", "0 -> 1 (+1)", "PASS RATE 67%"},
		},
		{
			name:     "without comparison",
			re:       report.Build(report.Metadata{RunID: "run-2"}, current, nil),
			want:     []string{"run-2", "login", "Version     : N/A"},
			dontWant: []string{"Comparing with", "->"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.re))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, w := range tt.dontWant {
				assert.NotContains(t, buf.String(), w)
			}
		})
	}
}
