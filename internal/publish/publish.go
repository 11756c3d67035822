// Package publish uploads the artifacts of a run to an S3 bucket, under
// <prefix>/<run-id>/, with the report JSON compressed as report.json.xz.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"

	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/report"
)

const (
	DefaultPrefix = "reports"

	// ReportObjectName is the compressed report JSON uploaded with every run.
	ReportObjectName = "report.json.xz"
	reportKind       = "report-data"

	metaRunID = "run-id"
	metaKind  = "kind"
)

// Config selects the destination bucket.
type Config struct {
	Bucket string
	Region string
	Prefix string
	DryRun bool
}

// Artifact is a rendered file to publish.
type Artifact struct {
	Path string
	Kind string
}

// Publisher uploads run artifacts to S3.
type Publisher struct {
	cfg      Config
	uploader s3manageriface.UploaderAPI
}

// New creates a publisher with an S3 upload manager for cfg.Region.
func New(cfg Config) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("missing bucket name")
	}
	uploader, err := createS3Uploader(cfg.Region)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 uploader")
	}
	return NewWithUploader(cfg, uploader), nil
}

// NewWithUploader creates a publisher on an existing upload manager.
func NewWithUploader(cfg Config, uploader s3manageriface.UploaderAPI) *Publisher {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Publisher{cfg: cfg, uploader: uploader}
}

// ObjectKey is the key of a file published for the run.
func (p *Publisher) ObjectKey(runID, name string) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.Prefix, report.SanitizeRunID(runID), name)
}

type object struct {
	key  string
	kind string
	body func() (*bytes.Reader, error)
}

// Publish uploads the artifacts of the run in parallel, with the compressed
// report JSON when re is not nil, and returns the s3:// URIs of the objects.
// In dry-run mode the uploads are only logged. Errors are returned as
// DeliveryError.
func (p *Publisher) Publish(ctx context.Context, runID string, re *report.Report, artifacts ...Artifact) ([]string, error) {
	objects := make([]object, 0, len(artifacts)+1)
	for _, a := range artifacts {
		path := a.Path
		objects = append(objects, object{
			key:  p.ObjectKey(runID, filepath.Base(path)),
			kind: a.Kind,
			body: func() (*bytes.Reader, error) {
				raw, err := os.ReadFile(path)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to open file %s", path)
				}
				return bytes.NewReader(raw), nil
			},
		})
	}
	if re != nil {
		objects = append(objects, object{
			key:  p.ObjectKey(runID, ReportObjectName),
			kind: reportKind,
			body: func() (*bytes.Reader, error) { return compressReport(re) },
		})
	}

	uris := make([]string, len(objects))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range objects {
		obj := objects[i]
		uri := "s3://" + p.cfg.Bucket + "/" + obj.key
		uris[i] = uri
		eg.Go(func() error {
			if p.cfg.DryRun {
				log.Warnf("DRY-RUN mode: skipping upload to %s", uri)
				return nil
			}
			body, err := obj.body()
			if err != nil {
				return err
			}
			log.Debugf("Publish(): uploading to object %s", obj.key)
			_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
				Bucket:   aws.String(p.cfg.Bucket),
				Key:      aws.String(obj.key),
				Metadata: aws.StringMap(map[string]string{metaRunID: runID, metaKind: obj.kind}),
				Body:     body,
			})
			if err != nil {
				return errors.Wrapf(err, "failed to upload %s to bucket %s", obj.key, p.cfg.Bucket)
			}
			log.Info("Report published successfully to ", uri)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &errs.DeliveryError{Target: "s3", Err: err}
	}
	return uris, nil
}

// compressReport encodes the report JSON with xz.
func compressReport(re *report.Report) (*bytes.Reader, error) {
	data, err := re.ShowJSON()
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode report")
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(data)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}
