// Package slack delivers report artifacts to a Slack channel with the
// external upload flow of the Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/xynehq/xyne-report/internal/errs"
)

const (
	DefaultAPIURL = "https://slack.com/api"

	// historyLimit is how many recent messages are searched for the
	// message to reply to.
	historyLimit = 20

	defaultTimeout = 30 * time.Second
)

// Config configures the Slack Web API client.
type Config struct {
	Token    string
	APIURL   string
	Timeout  time.Duration
	RetryMax int
}

// Notifier uploads files to Slack. A notifier without token is disabled and
// every call is a no-op.
type Notifier struct {
	token  string
	apiURL string
	client *http.Client
}

// UploadInput describes one file to share in a channel. ThreadTS, when set,
// posts the file as a reply to that message.
type UploadInput struct {
	Path     string
	Channel  string
	ThreadTS string
	Title    string
	Caption  string
}

// NewNotifier creates the notifier with a retrying HTTP client.
func NewNotifier(cfg Config) *Notifier {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryLogger := log.New()
	retryLogger.SetLevel(log.WarnLevel)
	retryClient.Logger = retryLogger

	return &Notifier{
		token:  cfg.Token,
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		client: retryClient.StandardClient(),
	}
}

// Enabled reports whether a bot token is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.token != ""
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type uploadURLResponse struct {
	apiResponse
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

type completeFile struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type completeRequest struct {
	Files          []completeFile `json:"files"`
	ChannelID      string         `json:"channel_id,omitempty"`
	InitialComment string         `json:"initial_comment,omitempty"`
	ThreadTS       string         `json:"thread_ts,omitempty"`
}

type completeResponse struct {
	apiResponse
	Files []struct {
		ID        string `json:"id"`
		Permalink string `json:"permalink"`
	} `json:"files"`
}

type historyResponse struct {
	apiResponse
	Messages []struct {
		Text string `json:"text"`
		TS   string `json:"ts"`
	} `json:"messages"`
}

// Upload shares the file in the channel and returns its permalink.
func (n *Notifier) Upload(ctx context.Context, in UploadInput) (string, error) {
	if !n.Enabled() {
		log.Info("Slack notification skipped: SLACK_BOT_TOKEN is not set")
		return "", nil
	}
	link, err := n.upload(ctx, in)
	if err != nil {
		return "", &errs.DeliveryError{Target: "slack", Err: err}
	}
	return link, nil
}

func (n *Notifier) upload(ctx context.Context, in UploadInput) (string, error) {
	content, err := os.ReadFile(in.Path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", in.Path)
	}
	filename := filepath.Base(in.Path)
	if in.Title == "" {
		in.Title = filename
	}

	form := url.Values{}
	form.Set("filename", filename)
	form.Set("length", strconv.Itoa(len(content)))
	target := &uploadURLResponse{}
	if err := n.call(ctx, http.MethodPost, "files.getUploadURLExternal", form, nil, target); err != nil {
		return "", err
	}
	if target.UploadURL == "" || target.FileID == "" {
		return "", errors.New("files.getUploadURLExternal: missing upload_url or file_id")
	}

	log.Infof("Uploading %s to Slack channel %s", filename, in.Channel)
	if err := n.send(ctx, target.UploadURL, content); err != nil {
		return "", err
	}

	done := &completeResponse{}
	req := completeRequest{
		Files:          []completeFile{{ID: target.FileID, Title: in.Title}},
		ChannelID:      in.Channel,
		InitialComment: in.Caption,
		ThreadTS:       in.ThreadTS,
	}
	if err := n.call(ctx, http.MethodPost, "files.completeUploadExternal", nil, req, done); err != nil {
		return "", err
	}
	for _, f := range done.Files {
		if f.ID == target.FileID {
			log.Infof("Slack file URL: %s", f.Permalink)
			return f.Permalink, nil
		}
	}
	return "", errors.Errorf("files.completeUploadExternal: file %s not in response", target.FileID)
}

// FindMessageTS returns the timestamp of the most recent message of the
// channel containing every needle, or an empty string when none of the
// last messages matches.
func (n *Notifier) FindMessageTS(ctx context.Context, channel string, needles ...string) (string, error) {
	if !n.Enabled() {
		return "", nil
	}
	query := url.Values{}
	query.Set("channel", channel)
	query.Set("limit", strconv.Itoa(historyLimit))
	history := &historyResponse{}
	if err := n.call(ctx, http.MethodGet, "conversations.history", query, nil, history); err != nil {
		return "", &errs.DeliveryError{Target: "slack", Err: err}
	}
	for _, msg := range history.Messages {
		if containsAll(msg.Text, needles) {
			log.Debugf("Found message at timestamp %s", msg.TS)
			return msg.TS, nil
		}
	}
	log.Debugf("No message matching %v in the last %d messages", needles, historyLimit)
	return "", nil
}

func containsAll(text string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(text, needle) {
			return false
		}
	}
	return true
}

// call invokes a Web API method. GET methods send params in the query
// string, POST methods send params as a form or body as JSON.
func (n *Notifier) call(ctx context.Context, method, apiMethod string, params url.Values, body any, out interface{ result() apiResponse }) error {
	endpoint := n.apiURL + "/" + apiMethod
	var reader io.Reader
	contentType := ""
	switch {
	case body != nil:
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json; charset=utf-8"
	case method == http.MethodGet && params != nil:
		endpoint += "?" + params.Encode()
	case params != nil:
		reader = strings.NewReader(params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("error creating %s request: %w", apiMethod, err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", apiMethod)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", apiMethod, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: HTTP %d", apiMethod, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "malformed %s response", apiMethod)
	}
	if r := out.result(); !r.OK {
		return fmt.Errorf("%s: %s", apiMethod, r.Error)
	}
	return nil
}

func (r apiResponse) result() apiResponse { return r }

// send posts the file content to the upload URL returned by Slack.
func (n *Notifier) send(ctx context.Context, uploadURL string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("error creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "file upload failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("file upload: HTTP %d", resp.StatusCode)
	}
	return nil
}
