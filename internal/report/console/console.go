// Package console prints the run summary as text tables.
package console

import (
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/summary"
)

// Write prints the run header, the module table and, when the run has a
// previous run, the comparison table.
func Write(w io.Writer, re *report.Report) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "\n> Test Execution Summary <\n\n")
	fmt.Fprintf(&buf, " Run ID      : %s\n", re.Meta.RunID)
	fmt.Fprintf(&buf, " Version     : %s\n", orNA(re.Meta.Version))
	fmt.Fprintf(&buf, " Environment : %s\n", orNA(re.Meta.Environment))
	if re.HasComparison() {
		fmt.Fprintf(&buf, " %s\n", re.ComparisonLabel())
	}
	buf.WriteString("\n")

	writeModules(&buf, re)
	if re.HasComparison() {
		buf.WriteString("\n")
		writeComparison(&buf, re)
	}

	_, err := buf.WriteTo(w)
	return err
}

func writeModules(w io.Writer, re *report.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Module", "State", "Run", "Passed", "Failed", "Skipped", "HHP/HP/MP/LP"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_CENTER,
	})
	for i := range re.Modules {
		ms := &re.Modules[i].Summary
		table.Append([]string{
			ms.ModuleName, ms.State(), itoa(ms.TestsRun), itoa(ms.TestsPassed),
			itoa(ms.TestsFailed), itoa(ms.TestsSkipped), priorities(ms),
		})
	}
	s := re.Summary
	table.SetFooter([]string{
		fmt.Sprintf("Total Modules %d", s.ModuleCount), fmt.Sprintf("Pass Rate %d%%", s.PassRate),
		itoa(s.TotalTests), itoa(s.TotalPassed), itoa(s.TotalFailed), itoa(s.TotalSkipped), "",
	})
	table.Render()
}

func writeComparison(w io.Writer, re *report.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Module", "Passed", "Failed", "Skipped"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for i := range re.Modules {
		d := re.Modules[i].Delta
		if d == nil {
			continue
		}
		table.Append([]string{
			d.ModuleName,
			fmt.Sprintf("%d -> %d (%+d)", d.Passed.Previous, d.Passed.Current, d.Passed.Delta),
			fmt.Sprintf("%d -> %d (%+d)", d.Failed.Previous, d.Failed.Current, d.Failed.Delta),
			fmt.Sprintf("%d -> %d (%+d)", d.Skipped.Previous, d.Skipped.Current, d.Skipped.Delta),
		})
	}
	table.Render()
}

func priorities(ms *summary.ModuleSummary) string {
	return fmt.Sprintf("%d/%d/%d/%d", ms.HighestPriorityFailed, ms.HighPriorityFailed, ms.MediumPriorityFailed, ms.LowPriorityFailed)
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
