package dbquery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindLiterals(t *testing.T) {
	type args struct {
		query string
		args  []any
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{
			name: "string is quoted",
			args: args{query: "SELECT * FROM t WHERE id = $1", args: []any{"run-1"}},
			want: "SELECT * FROM t WHERE id = 'run-1'",
		},
		{
			name: "quotes are doubled",
			args: args{query: "WHERE id = $1", args: []any{"x' OR '1'='1"}},
			want: "WHERE id = 'x'' OR ''1''=''1'",
		},
		{
			name: "repeated and mixed placeholders",
			args: args{query: "$1 $2 $1 $3 $4", args: []any{"a", 2, true, nil}},
			want: "'a' 2 'a' TRUE NULL",
		},
		{
			name:    "missing argument",
			args:    args{query: "WHERE a = $2", args: []any{"a"}},
			wantErr: true,
		},
		{
			name:    "unused argument",
			args:    args{query: "SELECT 1", args: []any{"a"}},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			args:    args{query: "WHERE a = $1", args: []any{struct{}{}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BindLiterals(tt.args.query, tt.args.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadQueries(t *testing.T) {
	_, err := LoadQueries([]byte("queries:\n  run_modules: SELECT 1\n"))
	assert.Error(t, err)

	q, err := LoadQueries([]byte("queries:\n  run_modules: SELECT 1\n  run_metadata: SELECT 2\n"))
	require.NoError(t, err)
	got, err := q.Get(QueryRunMetadata)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", got)

	_, err = q.Get("nope")
	assert.Error(t, err)
}

func TestDecodeQueryResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "response field", raw: `{"response":[{"a":1},{"a":2}]}`, want: 2},
		{name: "rows fallback", raw: `{"rows":[{"a":1}]}`, want: 1},
		{name: "empty response falls back to rows", raw: `{"response":[],"rows":[{"a":1}]}`, want: 1},
		{name: "no rows", raw: `{"status":"ok"}`, want: 0},
		{name: "null response", raw: `{"response":null}`, want: 0},
		{name: "not json", raw: `<html>`, wantErr: true},
		{name: "rows not a list", raw: `{"response":"oops"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeQueryResponse([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

type fakeDBQueryService struct {
	logins       atomic.Int32
	rejectFirst  atomic.Bool
	lastQuery    atomic.Value
	queryMethods atomic.Value
}

func (f *fakeDBQueryService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		body := loginRequest{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "user" || body.Password != "pass" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		n := f.logins.Add(1)
		_ = json.NewEncoder(w).Encode(loginResponse{Token: "token-" + string(rune('0'+n))})
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		f.queryMethods.Store(r.Method)
		if r.Header.Get(headerLoginToken) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.rejectFirst.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		body := queryRequest{}
		_ = json.Unmarshal(raw, &body)
		f.lastQuery.Store(body.Query)
		_, _ = w.Write([]byte(`{"response":[{"module_name":"login"}]}`))
	})
	return mux
}

func newTestHTTPExecutor(url string) *HTTPExecutor {
	return NewHTTPExecutor(HTTPConfig{
		LoginURL: url + "/login",
		QueryURL: url + "/query",
		Username: "user",
		Password: "pass",
		Timeout:  5 * time.Second,
		RetryMax: 0,
	})
}

func TestHTTPExecutorQuery(t *testing.T) {
	svc := &fakeDBQueryService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	exec := newTestHTTPExecutor(srv.URL)
	rows, err := exec.Query(context.Background(), "SELECT * FROM m WHERE id = $1", "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "login", rows[0]["module_name"])
	assert.Equal(t, "SELECT * FROM m WHERE id = 'run-1'", svc.lastQuery.Load())
	assert.Equal(t, http.MethodGet, svc.queryMethods.Load())

	// The token is reused across queries.
	_, err = exec.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), svc.logins.Load())
}

func TestHTTPExecutorReauthenticates(t *testing.T) {
	svc := &fakeDBQueryService{}
	svc.rejectFirst.Store(true)
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	exec := newTestHTTPExecutor(srv.URL)
	rows, err := exec.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(2), svc.logins.Load())
}

func TestHTTPExecutorLoginFailure(t *testing.T) {
	svc := &fakeDBQueryService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	exec := newTestHTTPExecutor(srv.URL)
	exec.cfg.Password = "wrong"
	_, err := exec.Query(context.Background(), "SELECT 1")
	assert.ErrorContains(t, err, "authentication failed")

	exec.cfg.Password = ""
	_, err = exec.Query(context.Background(), "SELECT 1")
	assert.ErrorContains(t, err, "JUSPAY_PASSWORD")
}

func TestSQLExecutorQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	exec := NewSQLExecutor(db)
	defer exec.Close()

	mock.ExpectQuery("SELECT module_name, run_data FROM xyne_test_module").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"module_name", "run_data"}).
			AddRow("login", []byte(`{"tests":[]}`)).
			AddRow("payments", nil))

	rows, err := exec.Query(context.Background(),
		"SELECT module_name, run_data FROM xyne_test_module WHERE cron_run_id = $1", "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "login", rows[0]["module_name"])
	assert.Equal(t, `{"tests":[]}`, rows[0]["run_data"])
	assert.Nil(t, rows[1]["run_data"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutorQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	exec := NewSQLExecutor(db)
	defer exec.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
	_, err = exec.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, assert.AnError)
}
