package slack

import (
	"fmt"
	"strings"

	"github.com/xynehq/xyne-report/internal/report"
)

// PDFMarker is part of the PDF caption and identifies the PDF message when
// threading the HTML report under it.
const PDFMarker = "PDF Test Execution Report"

// StatusEmoji is red with failures, yellow with skipped tests only and green
// otherwise.
func StatusEmoji(re *report.Report) string {
	switch {
	case re.Summary.TotalFailed > 0:
		return "🔴"
	case re.Summary.TotalSkipped > 0:
		return "🟡"
	}
	return "🟢"
}

// PDFCaption is the message posted with the PDF report.
func PDFCaption(re *report.Report) string {
	s := re.Summary
	env := re.Meta.Environment
	if env == "" {
		env = "N/A"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s Generated*\n\n", StatusEmoji(re), PDFMarker)
	fmt.Fprintf(&b, "📊 *Summary for CRON Run ID: %s*\n", re.Meta.RunID)
	fmt.Fprintf(&b, "• Environment: %s\n", env)
	fmt.Fprintf(&b, "• Total Modules: %d\n", s.ModuleCount)
	fmt.Fprintf(&b, "• Total Tests: %d\n", s.TotalTests)
	fmt.Fprintf(&b, "• Passed: %d\n", s.TotalPassed)
	fmt.Fprintf(&b, "• Failed: %d\n", s.TotalFailed)
	fmt.Fprintf(&b, "• Skipped: %d\n", s.TotalSkipped)
	fmt.Fprintf(&b, "• Pass Rate: %d%%\n", s.PassRate)
	fmt.Fprintf(&b, "• Generated: %s\n\n", re.Meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("📄 PDF report attached below.")
	return b.String()
}

// HTMLCaption is the message posted with the HTML report.
func HTMLCaption(runID string) string {
	return fmt.Sprintf("📊 Interactive HTML Test Report for CRON Run ID: %s\n\n"+
		"Click to view detailed test results with module navigation and version comparison.", runID)
}
