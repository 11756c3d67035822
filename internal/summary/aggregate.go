package summary

import "math"

// Aggregate reduces the outcomes of one module into a ModuleSummary. Every
// outcome counts toward TestsRun; failures land in exactly one priority
// bucket, unrecognized priorities in the medium one.
func Aggregate(name string, outcomes []TestOutcome, meta ModuleMeta) ModuleSummary {
	ms := ModuleSummary{
		ModuleName:         name,
		StartedAt:          meta.StartedAt,
		CompletedAt:        meta.CompletedAt,
		ExternalReportLink: meta.ExternalReportLink,
		Environment:        meta.Environment,
		RunBy:              meta.RunBy,
		Outcomes:           make([]TestOutcome, len(outcomes)),
	}
	copy(ms.Outcomes, outcomes)

	for _, o := range outcomes {
		ms.TestsRun++
		switch o.Status {
		case StatusPassed:
			ms.TestsPassed++
		case StatusSkipped:
			ms.TestsSkipped++
		case StatusFailed:
			ms.TestsFailed++
			switch o.Priority {
			case PriorityHighest:
				ms.HighestPriorityFailed++
			case PriorityHigh:
				ms.HighPriorityFailed++
			case PriorityLow:
				ms.LowPriorityFailed++
			default:
				ms.MediumPriorityFailed++
			}
		default:
			ms.TestsUnknown++
		}
	}
	return ms
}

// Reduce sums the module counters of a run. The result does not depend on
// the order of modules.
func Reduce(modules []ModuleSummary) RunSummary {
	rs := RunSummary{ModuleCount: len(modules)}
	for i := range modules {
		rs.TotalTests += modules[i].TestsRun
		rs.TotalPassed += modules[i].TestsPassed
		rs.TotalFailed += modules[i].TestsFailed
		rs.TotalSkipped += modules[i].TestsSkipped
	}
	rs.PassRate = PassRate(rs.TotalPassed, rs.TotalTests)
	return rs
}

// PassRate returns 100*passed/total rounded half to even, or 0 for an empty
// run.
func PassRate(passed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.RoundToEven(100 * float64(passed) / float64(total)))
}
