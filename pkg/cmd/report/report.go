// Package report holds the commands rendering the test execution reports of
// a run.
package report

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xynehq/xyne-report/internal/errs"
)

type cmdInput struct {
	json    bool
	summary bool
}

func newCmdRender(use, short string, formats ...Format) *cobra.Command {
	data := cmdInput{}
	cmd := &cobra.Command{
		Use:   use + " [run-id]",
		Short: short,
		Long:  short + " The run id is read from CRON_RUN_ID when not given.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in := &Input{Formats: formats, JSON: data.json, Summary: data.summary}
			if len(args) > 0 {
				in.RunID = args[0]
			}
			exit(Run(cmd.Context(), in, Options{}))
		},
	}
	cmd.Flags().BoolVarP(
		&data.json, "json", "", false,
		"Show report data in json format instead of rendering files",
	)
	cmd.Flags().BoolVarP(
		&data.summary, "summary", "", true,
		"Show the summary tables after rendering",
	)
	return cmd
}

func NewCmdHTML() *cobra.Command {
	return newCmdRender("html", "Generate the interactive HTML report of a run.", FormatHTML)
}

func NewCmdPDF() *cobra.Command {
	return newCmdRender("pdf", "Generate the PDF report of a run.", FormatPDF)
}

func NewCmdXLSX() *cobra.Command {
	return newCmdRender("xlsx", "Generate the spreadsheet index of a run.", FormatXLSX)
}

func NewCmdCharts() *cobra.Command {
	return newCmdRender("charts", "Generate the charts page of a run.", FormatCharts)
}

// NewCmdAll renders every format. The PDF comes first so the HTML report
// can be posted as a reply to the PDF message.
func NewCmdAll() *cobra.Command {
	return newCmdRender("all", "Generate every report of a run.", FormatPDF, FormatHTML, FormatXLSX, FormatCharts)
}

func NewCmdSummary() *cobra.Command {
	data := cmdInput{}
	cmd := &cobra.Command{
		Use:   "summary [run-id]",
		Short: "Show the summary of a run.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			in := &Input{JSON: data.json, Summary: true}
			if len(args) > 0 {
				in.RunID = args[0]
			}
			exit(Run(cmd.Context(), in, Options{}))
		},
	}
	cmd.Flags().BoolVarP(
		&data.json, "json", "", false,
		"Show report data in json format",
	)
	return cmd
}

// exit logs err and terminates with the exit code of its class.
func exit(err error) {
	if err == nil {
		return
	}
	var empty *errs.EmptyResultError
	if errors.As(err, &empty) {
		log.Warnf("%v, no report to generate", err)
	} else {
		log.Error(err)
	}
	os.Exit(errs.ExitCode(err))
}
