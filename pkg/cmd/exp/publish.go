package exp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xynehq/xyne-report/internal/config"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/publish"
	"github.com/xynehq/xyne-report/internal/report"
	"github.com/xynehq/xyne-report/internal/report/chart"
	"github.com/xynehq/xyne-report/internal/report/html"
	"github.com/xynehq/xyne-report/internal/report/xlsx"
)

type publishInput struct {
	runID  string
	files  []string
	prefix string
}

type publisher interface {
	Publish(ctx context.Context, runID string, re *report.Report, artifacts ...publish.Artifact) ([]string, error)
}

var argsPublish publishInput
var cmdPublish = &cobra.Command{
	Use:   "publish run-id file...",
	Short: "(Experimental) Publish report files of a run.",
	Long:  "Experimental command to publish report files already saved on disk to the reports bucket set by XYNE_REPORT_BUCKET_NAME.",
	Run:   cmdPublishRun,
	Args:  cobra.MinimumNArgs(2),
}

func init() {
	cmdPublish.Flags().StringVarP(
		&argsPublish.prefix, "prefix", "p", publish.DefaultPrefix,
		"Object key prefix, files are uploaded to <prefix>/<run-id>/<file>.",
	)
}

func cmdPublishRun(cmd *cobra.Command, args []string) {
	argsPublish.runID = args[0]
	argsPublish.files = args[1:]

	cfg := publish.Config{
		Bucket: viper.GetString(config.KeyBucketName),
		Region: viper.GetString(config.KeyBucketRegion),
		Prefix: argsPublish.prefix,
		DryRun: viper.GetBool(config.KeyDryRun),
	}
	if cfg.Bucket == "" {
		log.Error("missing " + config.KeyBucketName)
		os.Exit(errs.ExitUsage)
	}
	p, err := publish.New(cfg)
	if err != nil {
		log.Error(err)
		os.Exit(errs.ExitUnknown)
	}
	if err := publishFiles(cmd.Context(), p, &argsPublish); err != nil {
		log.Error(errors.Wrapf(err, "could not publish files of run %s", argsPublish.runID))
		os.Exit(errs.ExitCode(err))
	}
}

// publishFiles uploads the files of the run, failing before any upload when
// one of them is missing.
func publishFiles(ctx context.Context, p publisher, input *publishInput) error {
	log.Info("Publishing the reports to storage...")
	artifacts := make([]publish.Artifact, 0, len(input.files))
	for _, f := range input.files {
		if _, err := os.Stat(f); err != nil {
			return &errs.PersistError{Path: f, Err: err}
		}
		artifacts = append(artifacts, publish.Artifact{Path: f, Kind: kindOf(f)})
	}
	_, err := p.Publish(ctx, input.runID, nil, artifacts...)
	return err
}

// kindOf infers the artifact kind from the file name.
func kindOf(path string) string {
	name := filepath.Base(path)
	for _, kind := range []string{html.Kind, xlsx.Kind, chart.Kind} {
		if strings.HasPrefix(name, kind+"-") {
			return kind
		}
	}
	return "file"
}
