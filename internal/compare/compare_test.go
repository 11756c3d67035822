package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/xynehq/xyne-report/internal/summary"
)

func TestTest(t *testing.T) {
	type args struct {
		current  *float64
		previous *summary.TestOutcome
	}
	tests := []struct {
		name      string
		args      args
		wantClass Classification
		wantDelta *float64
		wantPct   *float64
	}{
		{
			name:      "slower",
			args:      args{current: ptr.To(1200.0), previous: &summary.TestOutcome{Name: "t", DurationMs: ptr.To(1000.0)}},
			wantClass: Worse,
			wantDelta: ptr.To(200.0),
			wantPct:   ptr.To(20.0),
		},
		{
			name:      "faster",
			args:      args{current: ptr.To(800.0), previous: &summary.TestOutcome{Name: "t", DurationMs: ptr.To(1000.0)}},
			wantClass: Better,
			wantDelta: ptr.To(-200.0),
			wantPct:   ptr.To(-20.0),
		},
		{
			name:      "unchanged",
			args:      args{current: ptr.To(500.0), previous: &summary.TestOutcome{Name: "t", DurationMs: ptr.To(500.0)}},
			wantClass: Same,
			wantDelta: ptr.To(0.0),
			wantPct:   ptr.To(0.0),
		},
		{
			name:      "previous zero has no percentage",
			args:      args{current: ptr.To(300.0), previous: &summary.TestOutcome{Name: "t", DurationMs: ptr.To(0.0)}},
			wantClass: Worse,
			wantDelta: ptr.To(300.0),
		},
		{
			name:      "absent from previous run",
			args:      args{current: ptr.To(300.0), previous: nil},
			wantClass: NotApplicable,
		},
		{
			name:      "previous without timing",
			args:      args{current: ptr.To(300.0), previous: &summary.TestOutcome{Name: "t"}},
			wantClass: NotApplicable,
		},
		{
			name:      "current without timing",
			args:      args{current: nil, previous: &summary.TestOutcome{Name: "t", DurationMs: ptr.To(10.0)}},
			wantClass: NotApplicable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Test(&summary.TestOutcome{Name: "t", DurationMs: tt.args.current}, tt.args.previous)
			assert.Equal(t, tt.wantClass, got.Class)
			assert.Equal(t, tt.wantDelta, got.DeltaMs)
			if tt.wantPct == nil {
				assert.Nil(t, got.PercentChange)
			} else {
				require.NotNil(t, got.PercentChange)
				assert.InDelta(t, *tt.wantPct, *got.PercentChange, 1e-9)
			}
		})
	}
}

func TestModules(t *testing.T) {
	current := summary.ModuleSummary{
		ModuleName: "login", TestsRun: 4, TestsPassed: 3, TestsFailed: 1, TestsSkipped: 0,
		Outcomes: []summary.TestOutcome{
			{Name: "a", Status: summary.StatusPassed, DurationMs: ptr.To(1200.0)},
			{Name: "dup", Status: summary.StatusPassed, DurationMs: ptr.To(100.0)},
			{Name: "new", Status: summary.StatusPassed, DurationMs: ptr.To(50.0)},
			{Name: "b", Status: summary.StatusFailed},
		},
	}
	previous := summary.ModuleSummary{
		ModuleName: "login", TestsRun: 4, TestsPassed: 2, TestsFailed: 0, TestsSkipped: 2,
		Outcomes: []summary.TestOutcome{
			{Name: "a", DurationMs: ptr.To(1000.0)},
			{Name: "dup", DurationMs: ptr.To(200.0)},
			{Name: "dup", DurationMs: ptr.To(50.0)},
			{Name: "b", DurationMs: ptr.To(10.0)},
		},
	}

	t.Run("no previous module", func(t *testing.T) {
		assert.Nil(t, Modules(&current, nil))
	})

	t.Run("counter deltas", func(t *testing.T) {
		got := Modules(&current, &previous)
		require.NotNil(t, got)
		assert.Equal(t, ModuleDelta{
			ModuleName: "login",
			Passed:     MetricDelta{Previous: 2, Current: 3, Delta: 1, Class: Better},
			Failed:     MetricDelta{Previous: 0, Current: 1, Delta: 1, Class: Worse},
			Skipped:    MetricDelta{Previous: 2, Current: 0, Delta: -2, Class: Neutral},
		}, got.Delta)
	})

	t.Run("test deltas follow outcome order and first match", func(t *testing.T) {
		got := Modules(&current, &previous)
		require.Len(t, got.Tests, 4)
		assert.Equal(t, []string{"a", "dup", "new", "b"},
			[]string{got.Tests[0].Name, got.Tests[1].Name, got.Tests[2].Name, got.Tests[3].Name})
		assert.Equal(t, Worse, got.Tests[0].Class)
		assert.Equal(t, ptr.To(-100.0), got.Tests[1].DeltaMs)
		assert.Equal(t, NotApplicable, got.Tests[2].Class)
		assert.Equal(t, NotApplicable, got.Tests[3].Class)
		assert.Equal(t, ptr.To(10.0), got.Tests[3].PreviousMs)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		before := len(previous.Outcomes)
		_ = Modules(&current, &previous)
		assert.Len(t, previous.Outcomes, before)
		assert.Equal(t, ptr.To(1200.0), current.Outcomes[0].DurationMs)
	})
}

func TestMetric(t *testing.T) {
	assert.Equal(t, Worse, metric(3, 1, false).Class)
	assert.Equal(t, Better, metric(3, 1, true).Class)
	assert.Equal(t, Same, metric(3, 3, true).Class)
}

func TestRun(t *testing.T) {
	current := []summary.ModuleSummary{
		{ModuleName: "login", TestsRun: 1, TestsPassed: 1},
		{ModuleName: "payments", TestsRun: 1, TestsPassed: 1},
	}
	previous := []summary.ModuleSummary{
		{ModuleName: "login", TestsRun: 1, TestsFailed: 1},
		{ModuleName: "retired", TestsRun: 1},
	}
	rc := Run("prev-1", current, previous)

	assert.Equal(t, "prev-1", rc.PreviousRunID)
	require.NotNil(t, rc.For("login"))
	assert.Equal(t, Better, rc.For("login").Delta.Passed.Class)
	assert.Nil(t, rc.For("payments"))
	assert.Nil(t, rc.For("retired"))

	var none *RunComparison
	assert.Nil(t, none.For("login"))
}
