package dbquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRetryMax       = 3

	headerLoginToken = "x-web-logintoken"
)

// HTTPConfig configures the dbQuery HTTP backend.
type HTTPConfig struct {
	LoginURL string
	QueryURL string
	Username string
	Password string
	Timeout  time.Duration
	RetryMax int
}

// HTTPExecutor runs queries through the dashboard dbQuery endpoint,
// authenticating against the login API on first use.
type HTTPExecutor struct {
	cfg    HTTPConfig
	client *http.Client
	token  string
}

// NewHTTPExecutor creates the executor with a retrying HTTP client.
func NewHTTPExecutor(cfg HTTPConfig) *HTTPExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = defaultRetryMax
	}
	return &HTTPExecutor{cfg: cfg, client: newRetryClient(cfg.RetryMax, cfg.Timeout)}
}

func newRetryClient(retryMax int, timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryLogger := log.New()
	retryLogger.SetLevel(log.WarnLevel)
	retryClient.Logger = retryLogger
	return retryClient.StandardClient()
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type queryRequest struct {
	Query string `json:"query"`
}

// authenticate exchanges the configured credentials for a login token.
func (e *HTTPExecutor) authenticate(ctx context.Context) error {
	if e.cfg.Username == "" || e.cfg.Password == "" {
		return errors.New("missing JUSPAY_USERNAME or JUSPAY_PASSWORD")
	}
	body, err := json.Marshal(loginRequest{Username: e.cfg.Username, Password: e.cfg.Password})
	if err != nil {
		return err
	}
	log.Debugf("HTTPExecutor: authenticating against %s", e.cfg.LoginURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.LoginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, status, err := e.do(req)
	if err != nil {
		return errors.Wrap(err, "authentication request failed")
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("authentication failed: %d %s", status, truncate(raw))
	}
	resp := loginResponse{}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return errors.Wrap(err, "invalid login response")
	}
	if resp.Token == "" {
		return errors.New("token not found in login response")
	}
	log.Debug("HTTPExecutor: authentication token obtained")
	e.token = resp.Token
	return nil
}

// Query binds args into the query and runs it, re-authenticating once when
// the token was rejected.
func (e *HTTPExecutor) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	bound, err := BindLiterals(query, args...)
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		if e.token == "" {
			if err := e.authenticate(ctx); err != nil {
				return nil, err
			}
		}
		records, status, err := e.query(ctx, bound)
		if status == http.StatusUnauthorized && attempt == 0 {
			log.Warn("HTTPExecutor: login token rejected, authenticating again")
			e.token = ""
			continue
		}
		return records, err
	}
}

func (e *HTTPExecutor) query(ctx context.Context, query string) ([]Record, int, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, 0, err
	}
	// The dbQuery service reads the query from the body of a GET request.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.QueryURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating query request: %w", err)
	}
	req.Header.Set(headerLoginToken, e.token)
	req.Header.Set("Content-Type", "application/json")

	raw, status, err := e.do(req)
	if err != nil {
		return nil, status, errors.Wrap(err, "query request failed")
	}
	log.Debug("dbQuery API response code: ", status)
	if status < 200 || status >= 300 {
		return nil, status, fmt.Errorf("database query failed: %d %s", status, truncate(raw))
	}
	records, err := DecodeQueryResponse(raw)
	return records, status, err
}

func (e *HTTPExecutor) do(req *http.Request) ([]byte, int, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// DecodeQueryResponse extracts the rows of a dbQuery response, read from the
// "response" field or, for older deployments, from "rows". A response
// without rows is an empty result, not an error.
func DecodeQueryResponse(raw []byte) ([]Record, error) {
	payload := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "malformed query response")
	}
	for _, key := range []string{"response", "rows"} {
		field, ok := payload[key]
		if !ok || string(field) == "null" {
			continue
		}
		var rows []Record
		if err := json.Unmarshal(field, &rows); err != nil {
			return nil, errors.Wrapf(err, "malformed %q field in query response", key)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return []Record{}, nil
}

func truncate(raw []byte) string {
	const max = 512
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
