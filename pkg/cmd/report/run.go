package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/xynehq/xyne-report/internal/compare"
	"github.com/xynehq/xyne-report/internal/config"
	"github.com/xynehq/xyne-report/internal/dbquery"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/fetch"
	"github.com/xynehq/xyne-report/internal/metrics"
	"github.com/xynehq/xyne-report/internal/notify/slack"
	"github.com/xynehq/xyne-report/internal/publish"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/report/chart"
	"github.com/xynehq/xyne-report/internal/report/console"
	"github.com/xynehq/xyne-report/internal/report/html"
	"github.com/xynehq/xyne-report/internal/report/pdf"
	"github.com/xynehq/xyne-report/internal/report/xlsx"
)

// Format is an artifact the commands can produce.
type Format struct {
	Name string
	// OutputKey prefixes the line printing the artifact path on stdout.
	OutputKey string
	Renderer  report.Renderer
}

var (
	FormatPDF    = Format{Name: "pdf", OutputKey: "PDF_OUTPUT_PATH", Renderer: pdf.New()}
	FormatHTML   = Format{Name: "html", OutputKey: "HTML_OUTPUT_PATH", Renderer: html.New()}
	FormatXLSX   = Format{Name: "xlsx", OutputKey: "XLSX_OUTPUT_PATH", Renderer: xlsx.New()}
	FormatCharts = Format{Name: "charts", OutputKey: "CHARTS_OUTPUT_PATH", Renderer: chart.New()}
)

// Notifier delivers artifacts to the team channel.
type Notifier interface {
	Enabled() bool
	Upload(ctx context.Context, in slack.UploadInput) (string, error)
	FindMessageTS(ctx context.Context, channel string, needles ...string) (string, error)
}

// Publisher uploads artifacts to the reports bucket.
type Publisher interface {
	Publish(ctx context.Context, runID string, re *report.Report, artifacts ...publish.Artifact) ([]string, error)
}

// Options holds the collaborators of a report invocation. Zero fields are
// filled from the configuration.
type Options struct {
	Viper *viper.Viper
	Out   io.Writer
	Now   func() time.Time

	// ThreadLookupDelay is the wait between lookups of the PDF message,
	// which Slack shares asynchronously after the upload completes.
	ThreadLookupDelay time.Duration

	NewExecutor  func(cfg *config.Config) (dbquery.Executor, func() error, error)
	NewNotifier  func(cfg *config.Config) Notifier
	NewPublisher func(cfg *config.Config) (Publisher, error)
}

func (o *Options) defaults() {
	if o.Viper == nil {
		o.Viper = viper.GetViper()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ThreadLookupDelay == 0 {
		o.ThreadLookupDelay = defaultThreadLookupDelay
	}
	if o.NewExecutor == nil {
		o.NewExecutor = func(cfg *config.Config) (dbquery.Executor, func() error, error) {
			return cfg.NewExecutor()
		}
	}
	if o.NewNotifier == nil {
		o.NewNotifier = func(cfg *config.Config) Notifier {
			return slack.NewNotifier(cfg.SlackConfig())
		}
	}
	if o.NewPublisher == nil {
		o.NewPublisher = func(cfg *config.Config) (Publisher, error) {
			return publish.New(cfg.PublishConfig())
		}
	}
}

const (
	threadLookupAttempts     = 5
	defaultThreadLookupDelay = 2 * time.Second
)

// Input is one invocation of a report command.
type Input struct {
	RunID   string
	Formats []Format
	// JSON prints the report data instead of rendering artifacts.
	JSON bool
	// Summary prints the console tables.
	Summary bool
}

type artifact struct {
	format Format
	path   string
}

// Run fetches the run, renders the requested artifacts and delivers them.
// Delivery failures are logged and never returned.
func Run(ctx context.Context, in *Input, opts Options) error {
	opts.defaults()
	timers := metrics.NewTimers()
	defer timers.Track("total")()

	cfg, err := config.Load(opts.Viper, in.RunID)
	if err != nil {
		return err
	}

	re, err := buildReport(ctx, cfg, opts, timers)
	if err != nil {
		return err
	}

	if in.JSON {
		re.Timers = timers
		data, err := re.ShowJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(opts.Out, data)
		return nil
	}

	stopRender := timers.Track("render")
	artifacts := make([]artifact, 0, len(in.Formats))
	for _, f := range in.Formats {
		log.Infof("Generating %s report for run %s", f.Name, cfg.RunID)
		path, err := report.Save(cfg.ReportsDir, f.Renderer, re)
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.Out, "%s:%s\n", f.OutputKey, path)
		artifacts = append(artifacts, artifact{format: f, path: path})
	}
	stopRender()

	if in.Summary {
		if err := console.Write(opts.Out, re); err != nil {
			return err
		}
	}

	stopDeliver := timers.Track("deliver")
	if !cfg.SlackDisabled {
		deliver(ctx, cfg, opts, opts.NewNotifier(cfg), re, artifacts)
	}
	if cfg.Publish {
		publishArtifacts(ctx, cfg, opts, re, artifacts)
	}
	stopDeliver()
	return nil
}

// buildReport reads the run and its previous run and assembles the report.
func buildReport(ctx context.Context, cfg *config.Config, opts Options, timers *metrics.Timers) (*report.Report, error) {
	stopFetch := timers.Track("fetch")
	exec, closeExec, err := opts.NewExecutor(cfg)
	if err != nil {
		return nil, errs.NewFetchError("connect", err)
	}
	defer func() {
		if err := closeExec(); err != nil {
			log.Warnf("Unable to close query executor: %v", err)
		}
	}()
	queries, err := dbquery.LoadEmbeddedQueries()
	if err != nil {
		return nil, err
	}

	f := fetch.New(exec, queries)
	log.Infof("Fetching test results for run %s", cfg.RunID)
	run, err := f.FetchRun(ctx, cfg.RunID)
	if err != nil {
		return nil, err
	}
	if len(run.Modules) == 0 {
		return nil, &errs.EmptyResultError{RunID: cfg.RunID}
	}
	previous := f.FetchPrevious(ctx, run.Meta)
	stopFetch()

	defer timers.Track("aggregate")()
	var rc *compare.RunComparison
	if previous != nil {
		rc = compare.Run(run.Meta.PreviousRunID, run.Modules, previous)
		rc.PreviousVersion = run.Meta.PreviousVersion
	}
	version := run.Meta.Version
	if version == "" {
		version = cfg.RepoVersion
	}
	meta := report.Metadata{
		RunID:           cfg.RunID,
		Environment:     run.Meta.Environment,
		Version:         version,
		PreviousVersion: run.Meta.PreviousVersion,
		PreviousRunID:   run.Meta.PreviousRunID,
		RunBy:           run.Meta.RunBy,
		GeneratedAt:     opts.Now(),
	}
	re := report.Build(meta, run.Modules, rc)
	log.Infof("Run %s: %d modules, %d tests, pass rate %d%%",
		cfg.RunID, re.Summary.ModuleCount, re.Summary.TotalTests, re.Summary.PassRate)
	return re, nil
}

// deliver posts the PDF report to the channel, then the HTML report as a
// reply to the PDF message when it can be found.
func deliver(ctx context.Context, cfg *config.Config, opts Options, n Notifier, re *report.Report, artifacts []artifact) {
	if !n.Enabled() {
		log.Info("Slack notification skipped: not configured")
		return
	}
	for _, a := range artifacts {
		in := slack.UploadInput{Path: a.path, Channel: cfg.SlackChannelID}
		switch a.format.Name {
		case FormatPDF.Name:
			in.Caption = slack.PDFCaption(re)
		case FormatHTML.Name:
			in.ThreadTS = findThread(ctx, cfg, opts.ThreadLookupDelay, n)
			in.Caption = slack.HTMLCaption(cfg.RunID)
		default:
			continue
		}
		if _, err := n.Upload(ctx, in); err != nil {
			log.Warnf("Failed to send %s report to Slack, the report is available at %s: %v", a.format.Name, a.path, err)
		}
	}
}

// findThread polls the channel history for the PDF message of the run. An
// empty timestamp posts the HTML report at channel level.
func findThread(ctx context.Context, cfg *config.Config, delay time.Duration, n Notifier) string {
	for attempt := 1; attempt <= threadLookupAttempts; attempt++ {
		ts, err := n.FindMessageTS(ctx, cfg.SlackChannelID, cfg.RunID, slack.PDFMarker)
		if err != nil {
			log.Warnf("Unable to find the PDF message of run %s: %v", cfg.RunID, err)
			return ""
		}
		if ts != "" {
			return ts
		}
		if attempt == threadLookupAttempts {
			break
		}
		log.Debugf("PDF message of run %s not shared yet, retrying in %s", cfg.RunID, delay)
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(delay):
		}
	}
	log.Warnf("PDF message of run %s not found, posting the HTML report at channel level", cfg.RunID)
	return ""
}

func publishArtifacts(ctx context.Context, cfg *config.Config, opts Options, re *report.Report, artifacts []artifact) {
	p, err := opts.NewPublisher(cfg)
	if err != nil {
		log.Warnf("Unable to publish reports: %v", err)
		return
	}
	files := make([]publish.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		files = append(files, publish.Artifact{Path: a.path, Kind: a.format.Renderer.Kind()})
	}
	if _, err := p.Publish(ctx, cfg.RunID, re, files...); err != nil {
		log.Warnf("Unable to publish reports: %v", err)
	}
}
