// Package dbquery is the query collaborator: it runs the named queries of the
// catalog against the test automation database, either through the dbQuery
// HTTP service or directly on Postgres.
package dbquery

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/xynehq/xyne-report/internal/assets"
)

// Record is one row returned by a query, indexed by column name.
type Record map[string]any

// Executor runs a query with positional ($n) arguments.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) ([]Record, error)
}

// Names of the queries in the catalog.
const (
	QueryRunModules  = "run_modules"
	QueryRunMetadata = "run_metadata"

	QueriesCatalogPath = "queries/queries.yaml"
)

// Queries is the catalog of named SQL queries.
type Queries struct {
	Queries map[string]string `yaml:"queries"`
}

// LoadQueries parses a YAML query catalog.
func LoadQueries(raw []byte) (*Queries, error) {
	q := &Queries{}
	if err := yaml.Unmarshal(raw, q); err != nil {
		return nil, fmt.Errorf("unable to parse query catalog: %w", err)
	}
	for _, name := range []string{QueryRunModules, QueryRunMetadata} {
		if q.Queries[name] == "" {
			return nil, fmt.Errorf("query catalog is missing %q", name)
		}
	}
	return q, nil
}

// LoadEmbeddedQueries reads the catalog shipped in the binary.
func LoadEmbeddedQueries() (*Queries, error) {
	raw, err := assets.ReadFile(QueriesCatalogPath)
	if err != nil {
		return nil, err
	}
	return LoadQueries(raw)
}

// Get returns the query text by name.
func (q *Queries) Get(name string) (string, error) {
	query, ok := q.Queries[name]
	if !ok {
		return "", fmt.Errorf("unknown query %q", name)
	}
	return query, nil
}
