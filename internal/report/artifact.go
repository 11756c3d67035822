package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xynehq/xyne-report/internal/errs"
)

// ArtifactTimeLayout is the timestamp layout used in artifact names.
const ArtifactTimeLayout = "2006-01-02_15-04-05"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactName returns <kind>-<run-id>-<timestamp>.<ext>. Characters of the
// run id that are not safe in file names are replaced with '_'.
func ArtifactName(kind, runID, ext string, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%s.%s", kind, SanitizeRunID(runID), ts.Format(ArtifactTimeLayout), ext)
}

// SanitizeRunID makes the run id usable as part of a file name.
func SanitizeRunID(runID string) string {
	s := unsafeFileChars.ReplaceAllString(runID, "_")
	if s == "" || s == "." || s == ".." {
		return "run"
	}
	return s
}

// SaveArtifact renders an artifact into dir, creating it when needed. The
// content is written to a temporary file renamed once complete, so a failed
// render never leaves a partial artifact.
func SaveArtifact(dir, kind, runID, ext string, ts time.Time, render func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &errs.PersistError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, ArtifactName(kind, runID, ext, ts))

	tmp, err := os.CreateTemp(dir, "."+kind+"-*.tmp")
	if err != nil {
		return "", &errs.PersistError{Path: path, Err: err}
	}
	cleanup := func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			log.Warnf("Unable to remove temporary file %s: %v", tmp.Name(), err)
		}
	}

	if err := render(tmp); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", &errs.PersistError{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		cleanup()
		return "", &errs.PersistError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return "", &errs.PersistError{Path: path, Err: err}
	}
	log.Debugf("Artifact saved to %s", path)
	return path, nil
}

// Save renders the report with r into dir.
func Save(dir string, r Renderer, re *Report) (string, error) {
	return SaveArtifact(dir, r.Kind(), re.Meta.RunID, r.Extension(), re.Meta.GeneratedAt, func(w io.Writer) error {
		return r.Render(w, re)
	})
}
