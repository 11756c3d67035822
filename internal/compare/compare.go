// Package compare computes the run-over-run comparison between a run and the
// previous run designated for it.
package compare

import (
	"github.com/xynehq/xyne-report/internal/summary"
)

// Classification is the judgement attached to a delta.
type Classification string

const (
	Better        Classification = "better"
	Worse         Classification = "worse"
	Same          Classification = "same"
	Neutral       Classification = "neutral"
	NotApplicable Classification = "not-applicable"
)

// MetricDelta is a signed difference between the current and previous value
// of a module counter.
type MetricDelta struct {
	Previous int            `json:"previous"`
	Current  int            `json:"current"`
	Delta    int            `json:"delta"`
	Class    Classification `json:"class"`
}

// ModuleDelta holds the counter deltas of a module present in both runs.
type ModuleDelta struct {
	ModuleName string      `json:"moduleName"`
	Passed     MetricDelta `json:"passed"`
	Failed     MetricDelta `json:"failed"`
	Skipped    MetricDelta `json:"skipped"`
}

// TestDelta compares the duration of a test with its previous run. Deltas
// are nil when there is no baseline to compare with.
type TestDelta struct {
	Name          string         `json:"name"`
	CurrentMs     *float64       `json:"currentMs,omitempty"`
	PreviousMs    *float64       `json:"previousMs,omitempty"`
	DeltaMs       *float64       `json:"deltaMs,omitempty"`
	PercentChange *float64       `json:"percentChange,omitempty"`
	Class         Classification `json:"class"`
}

// ModuleComparison is the result of comparing one module with its previous
// occurrence: the counter deltas and one TestDelta per current outcome, in
// outcome order.
type ModuleComparison struct {
	Delta ModuleDelta `json:"delta"`
	Tests []TestDelta `json:"tests"`
}

// RunComparison relates the modules of a run with the previous run.
type RunComparison struct {
	PreviousRunID   string                       `json:"previousRunId"`
	PreviousVersion string                       `json:"previousVersion,omitempty"`
	Modules         map[string]*ModuleComparison `json:"modules"`
}

// For returns the comparison of the module, nil when the module is absent
// from the previous run or c is nil.
func (c *RunComparison) For(moduleName string) *ModuleComparison {
	if c == nil {
		return nil
	}
	return c.Modules[moduleName]
}

// Run compares every current module with the previous module of the same
// name. Module renames are not followed: a renamed module has no comparison.
func Run(previousRunID string, current, previous []summary.ModuleSummary) *RunComparison {
	prevByName := make(map[string]*summary.ModuleSummary, len(previous))
	for i := range previous {
		if _, ok := prevByName[previous[i].ModuleName]; !ok {
			prevByName[previous[i].ModuleName] = &previous[i]
		}
	}
	rc := &RunComparison{
		PreviousRunID: previousRunID,
		Modules:       make(map[string]*ModuleComparison, len(current)),
	}
	for i := range current {
		if mc := Modules(&current[i], prevByName[current[i].ModuleName]); mc != nil {
			rc.Modules[current[i].ModuleName] = mc
		}
	}
	return rc
}

// Modules compares a module with its previous occurrence. A nil previous
// module yields nil: no baseline is not the same as no change.
func Modules(current, previous *summary.ModuleSummary) *ModuleComparison {
	if current == nil || previous == nil {
		return nil
	}
	mc := &ModuleComparison{
		Delta: ModuleDelta{
			ModuleName: current.ModuleName,
			Passed:     metric(previous.TestsPassed, current.TestsPassed, false),
			Failed:     metric(previous.TestsFailed, current.TestsFailed, true),
			Skipped: MetricDelta{
				Previous: previous.TestsSkipped,
				Current:  current.TestsSkipped,
				Delta:    current.TestsSkipped - previous.TestsSkipped,
				Class:    Neutral,
			},
		},
		Tests: make([]TestDelta, 0, len(current.Outcomes)),
	}

	// Names may repeat within a run; only the first previous occurrence is
	// used as baseline.
	prevTests := make(map[string]*summary.TestOutcome, len(previous.Outcomes))
	for i := range previous.Outcomes {
		if _, ok := prevTests[previous.Outcomes[i].Name]; !ok {
			prevTests[previous.Outcomes[i].Name] = &previous.Outcomes[i]
		}
	}
	for i := range current.Outcomes {
		mc.Tests = append(mc.Tests, Test(&current.Outcomes[i], prevTests[current.Outcomes[i].Name]))
	}
	return mc
}

// metric builds a counter delta. For inverted metrics an increase is worse.
func metric(previous, current int, inverted bool) MetricDelta {
	md := MetricDelta{Previous: previous, Current: current, Delta: current - previous}
	switch {
	case md.Delta == 0:
		md.Class = Same
	case (md.Delta > 0) != inverted:
		md.Class = Better
	default:
		md.Class = Worse
	}
	return md
}

// Test compares the duration of a test with its previous outcome.
func Test(current, previous *summary.TestOutcome) TestDelta {
	td := TestDelta{Name: current.Name, CurrentMs: current.DurationMs, Class: NotApplicable}
	if previous == nil {
		return td
	}
	td.PreviousMs = previous.DurationMs
	if current.DurationMs == nil || previous.DurationMs == nil {
		return td
	}

	delta := *current.DurationMs - *previous.DurationMs
	td.DeltaMs = &delta
	if *previous.DurationMs != 0 {
		pct := 100 * delta / *previous.DurationMs
		td.PercentChange = &pct
	}
	switch {
	case delta > 0:
		td.Class = Worse
	case delta < 0:
		td.Class = Better
	default:
		td.Class = Same
	}
	return td
}
