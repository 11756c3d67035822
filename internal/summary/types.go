// Package summary turns the raw per-test records of a run into module and run
// level summaries.
package summary

import "time"

// Status is the outcome of a single test case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusUnknown Status = "unknown"
)

// ParseStatus returns the known status for s, or StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPassed, StatusFailed, StatusSkipped:
		return Status(s)
	}
	return StatusUnknown
}

// Priority is the severity rank of a test case.
type Priority string

const (
	PriorityHighest Priority = "highest"
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
)

// ParsePriority returns the known priority for s. Empty and unrecognized
// values fall back to PriorityMedium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	}
	return PriorityMedium
}

// UnknownTestName is used when a record carries neither name nor title.
const UnknownTestName = "Unknown Test"

// TestOutcome is one executed test case.
type TestOutcome struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	// DurationMs is nil when the record has no timing. Zero is a real value.
	DurationMs *float64 `json:"durationMs,omitempty"`
}

// ModuleMeta carries the module fields that are not derived from outcomes.
type ModuleMeta struct {
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ExternalReportLink string
	Environment        string
	RunBy              string
}

// ModuleSummary aggregates all outcomes sharing a module name in one run.
type ModuleSummary struct {
	ModuleName   string `json:"moduleName"`
	TestsRun     int    `json:"testsRun"`
	TestsPassed  int    `json:"testsPassed"`
	TestsFailed  int    `json:"testsFailed"`
	TestsSkipped int    `json:"testsSkipped"`
	TestsUnknown int    `json:"testsUnknown"`

	HighestPriorityFailed int `json:"highestPriorityFailed"`
	HighPriorityFailed    int `json:"highPriorityFailed"`
	MediumPriorityFailed  int `json:"mediumPriorityFailed"`
	LowPriorityFailed     int `json:"lowPriorityFailed"`

	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	ExternalReportLink string     `json:"externalReportLink,omitempty"`
	Environment        string     `json:"environment,omitempty"`
	RunBy              string     `json:"runBy,omitempty"`

	Outcomes []TestOutcome `json:"outcomes"`
}

// State is the display state of a module: every test passed, at least one
// failure, or anything in between.
func (ms *ModuleSummary) State() string {
	switch {
	case ms.TestsFailed == 0 && ms.TestsPassed == ms.TestsRun:
		return "passed"
	case ms.TestsFailed > 0:
		return "failed"
	}
	return "partial"
}

// PriorityFailedTotal is the sum of the four priority buckets.
func (ms *ModuleSummary) PriorityFailedTotal() int {
	return ms.HighestPriorityFailed + ms.HighPriorityFailed + ms.MediumPriorityFailed + ms.LowPriorityFailed
}

// RunSummary aggregates every module of a run.
type RunSummary struct {
	TotalTests   int `json:"totalTests"`
	TotalPassed  int `json:"totalPassed"`
	TotalFailed  int `json:"totalFailed"`
	TotalSkipped int `json:"totalSkipped"`
	PassRate     int `json:"passRate"`
	ModuleCount  int `json:"moduleCount"`
}
