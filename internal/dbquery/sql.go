package dbquery

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const pgxDriverName = "pgx"

// SQLExecutor runs queries directly on Postgres.
type SQLExecutor struct {
	db *sql.DB
}

// OpenSQLExecutor opens a connection pool with the pgx driver.
func OpenSQLExecutor(dsn string) (*SQLExecutor, error) {
	if dsn == "" {
		return nil, errors.New("missing DATABASE_URL")
	}
	db, err := sql.Open(pgxDriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open database")
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	return NewSQLExecutor(db), nil
}

// NewSQLExecutor wraps an existing database handle.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Query runs the query with native placeholders.
func (e *SQLExecutor) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "database query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	records := []Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "unable to scan row")
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			// JSON and text columns may come back as raw bytes.
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}
	log.Debugf("SQLExecutor: query returned %d rows", len(records))
	return records, nil
}

// Close releases the connection pool.
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}
