// Package fetch reads the module records and the run metadata of a run
// through the query collaborator.
package fetch

import (
	"context"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/xynehq/xyne-report/internal/dbquery"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/summary"
)

// Column names of the run metadata record.
const (
	fieldRepoVersion     = "repo_version"
	fieldPreviousVersion = "previous_version"
	fieldPreviousRunID   = "previous_run_id"
	fieldRunEnv          = "run_env"
	fieldRunBy           = "run_by"
)

// RunMeta is the row of a run in the runs table. PreviousRunID is empty for
// the initial run.
type RunMeta struct {
	RunID           string `json:"runId"`
	Version         string `json:"version,omitempty"`
	PreviousVersion string `json:"previousVersion,omitempty"`
	PreviousRunID   string `json:"previousRunId,omitempty"`
	Environment     string `json:"environment,omitempty"`
	RunBy           string `json:"runBy,omitempty"`
}

// RunData is everything known about one run.
type RunData struct {
	Meta    RunMeta
	Modules []summary.ModuleSummary
}

// Fetcher reads runs with the named queries of the catalog.
type Fetcher struct {
	exec    dbquery.Executor
	queries *dbquery.Queries
}

// New creates a Fetcher.
func New(exec dbquery.Executor, queries *dbquery.Queries) *Fetcher {
	return &Fetcher{exec: exec, queries: queries}
}

// FetchRun reads the metadata and the modules of a run. An unknown run id is
// not an error: it yields a RunData without modules.
func (f *Fetcher) FetchRun(ctx context.Context, runID string) (*RunData, error) {
	meta, err := f.fetchMeta(ctx, runID)
	if err != nil {
		return nil, err
	}
	modules, err := f.fetchModules(ctx, runID, meta.Environment, meta.RunBy)
	if err != nil {
		return nil, err
	}
	log.Debugf("FetchRun(): run %s has %d modules", runID, len(modules))
	return &RunData{Meta: *meta, Modules: modules}, nil
}

// FetchPrevious reads the modules of the run designated as previous by meta.
// It returns nil when there is no previous run or it can not be read: the
// report is then rendered without comparison.
func (f *Fetcher) FetchPrevious(ctx context.Context, meta RunMeta) []summary.ModuleSummary {
	if meta.PreviousRunID == "" {
		log.Info("No previous run recorded, rendering without comparison")
		return nil
	}
	modules, err := f.fetchModules(ctx, meta.PreviousRunID, "", "")
	if err != nil {
		log.Warnf("Unable to read previous run %s, rendering without comparison: %v", meta.PreviousRunID, err)
		return nil
	}
	if len(modules) == 0 {
		log.Warnf("Previous run %s has no modules, rendering without comparison", meta.PreviousRunID)
		return nil
	}
	return modules
}

func (f *Fetcher) fetchMeta(ctx context.Context, runID string) (*RunMeta, error) {
	records, err := f.run(ctx, dbquery.QueryRunMetadata, runID)
	if err != nil {
		return nil, err
	}
	meta := &RunMeta{RunID: runID}
	if len(records) == 0 {
		log.Debugf("fetchMeta(): run %s has no metadata record", runID)
		return meta, nil
	}
	rec := records[0]
	meta.Version = str(rec[fieldRepoVersion])
	meta.PreviousVersion = str(rec[fieldPreviousVersion])
	meta.PreviousRunID = str(rec[fieldPreviousRunID])
	meta.Environment = str(rec[fieldRunEnv])
	meta.RunBy = str(rec[fieldRunBy])
	return meta, nil
}

func (f *Fetcher) fetchModules(ctx context.Context, runID, environment, runBy string) ([]summary.ModuleSummary, error) {
	records, err := f.run(ctx, dbquery.QueryRunModules, runID)
	if err != nil {
		return nil, err
	}
	modules := make([]summary.ModuleSummary, 0, len(records))
	for _, rec := range records {
		ms, err := summary.ParseModuleRecord(rec, environment, runBy)
		if err != nil {
			return nil, errs.NewFetchError("run "+runID, err)
		}
		modules = append(modules, ms)
	}
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].ModuleName < modules[j].ModuleName
	})
	return modules, nil
}

func (f *Fetcher) run(ctx context.Context, name, runID string) ([]dbquery.Record, error) {
	query, err := f.queries.Get(name)
	if err != nil {
		return nil, errs.NewFetchError(name, err)
	}
	records, err := f.exec.Query(ctx, query, runID)
	if err != nil {
		return nil, errs.NewFetchError(name, err)
	}
	return records, nil
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}
