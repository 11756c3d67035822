package report

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/summary"
)

// Validate checks the report is consistent before rendering. Every
// violation is reported in a single RenderError.
func (re *Report) Validate() error {
	var result *multierror.Error

	if re.Meta.RunID == "" {
		result = multierror.Append(result, fmt.Errorf("report without run id"))
	}

	seen := make(map[string]struct{}, len(re.Modules))
	modules := make([]summary.ModuleSummary, 0, len(re.Modules))
	for i := range re.Modules {
		entry := &re.Modules[i]
		name := entry.Summary.ModuleName
		modules = append(modules, entry.Summary)

		if _, ok := seen[name]; ok {
			result = multierror.Append(result, fmt.Errorf("module %q is listed more than once", name))
		}
		seen[name] = struct{}{}

		if err := checkCounters(&entry.Summary); err != nil {
			result = multierror.Append(result, err)
		}
		if entry.Delta == nil {
			if len(entry.Tests) > 0 {
				result = multierror.Append(result, fmt.Errorf("module %q has test deltas without a module delta", name))
			}
			continue
		}
		if entry.Delta.ModuleName != name {
			result = multierror.Append(result, fmt.Errorf("module %q carries the delta of module %q", name, entry.Delta.ModuleName))
		}
		if len(entry.Tests) != len(entry.Summary.Outcomes) {
			result = multierror.Append(result, fmt.Errorf("module %q has %d test deltas for %d outcomes",
				name, len(entry.Tests), len(entry.Summary.Outcomes)))
		}
	}

	if want := summary.Reduce(modules); want != re.Summary {
		result = multierror.Append(result, fmt.Errorf("run summary %+v does not match its modules %+v", re.Summary, want))
	}

	if err := result.ErrorOrNil(); err != nil {
		return &errs.RenderError{Err: err}
	}
	return nil
}

func checkCounters(ms *summary.ModuleSummary) error {
	if ms.TestsPassed+ms.TestsFailed+ms.TestsSkipped+ms.TestsUnknown != ms.TestsRun {
		return fmt.Errorf("module %q counters do not add up to %d tests", ms.ModuleName, ms.TestsRun)
	}
	if ms.PriorityFailedTotal() != ms.TestsFailed {
		return fmt.Errorf("module %q priority counters do not add up to %d failures", ms.ModuleName, ms.TestsFailed)
	}
	return nil
}
