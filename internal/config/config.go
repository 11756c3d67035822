// Package config builds the single configuration value of a report command
// from the environment, an optional .env file and the command flags.
package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/xynehq/xyne-report/internal/dbquery"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/internal/notify/slack"
	"github.com/xynehq/xyne-report/internal/publish"
)

// Environment keys.
const (
	KeyLoginAPIEndpoint = "LOGIN_API_ENDPOINT"
	KeyUsername         = "JUSPAY_USERNAME"
	KeyPassword         = "JUSPAY_PASSWORD"
	KeyDBAPIEndpoint    = "DB_API_ENDPOINT"
	KeyQueryBackend     = "QUERY_BACKEND"
	KeyDatabaseURL      = "DATABASE_URL"
	KeySlackBotToken    = "SLACK_BOT_TOKEN"
	KeySlackChannelID   = "SLACK_CHANNEL_ID"
	KeySlackAPIURL      = "SLACK_API_URL"
	KeyRepoVersion      = "REPO_VERSION"
	KeyReportsDir       = "REPORTS_DIR"
	KeyBucketName       = "XYNE_REPORT_BUCKET_NAME"
	KeyBucketRegion     = "XYNE_REPORT_BUCKET_REGION"
	KeyRunID            = "CRON_RUN_ID"

	// Flag keys bound by the commands.
	KeyTimeout   = "timeout"
	KeyOutputDir = "output-dir"
	KeyPublish   = "publish"
	KeyDryRun    = "dry-run"
	KeyNoSlack   = "no-slack"
)

// Query backends.
const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
)

// Defaults.
const (
	DefaultSlackChannel = "xyne-automation"
	DefaultSlackAPIURL  = "https://slack.com/api"
	DefaultReportsDir   = "reports"
	DefaultTimeout      = 30 * time.Second
	DefaultRetryMax     = 3
	DefaultEnvFile      = ".env"
)

// Config is the explicit configuration passed to the collaborators.
type Config struct {
	RunID string

	QueryBackend     string
	LoginAPIEndpoint string
	DBAPIEndpoint    string
	Username         string
	Password         string
	DatabaseURL      string

	SlackBotToken  string
	SlackChannelID string
	SlackAPIURL    string
	SlackDisabled  bool

	RepoVersion string
	ReportsDir  string
	Timeout     time.Duration

	BucketName   string
	BucketRegion string
	Publish      bool
	DryRun       bool
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyQueryBackend, BackendHTTP)
	v.SetDefault(KeySlackChannelID, DefaultSlackChannel)
	v.SetDefault(KeySlackAPIURL, DefaultSlackAPIURL)
	v.SetDefault(KeyReportsDir, DefaultReportsDir)
	v.SetDefault(KeyTimeout, DefaultTimeout)
}

// MergeEnvFile merges a dotenv file into v. Values from the file never take
// precedence over the process environment. A missing default file is not an
// error, a missing explicit file is.
func MergeEnvFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			log.Debugf("No env file found at %s", path)
			return nil
		}
		return errors.Wrapf(err, "unable to read env file %s", path)
	}
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "unable to parse env file %s", path)
	}
	for _, key := range fv.AllKeys() {
		upper := strings.ToUpper(key)
		if _, ok := os.LookupEnv(upper); ok {
			continue
		}
		v.Set(upper, fv.Get(key))
	}
	log.Debugf("Loaded %d keys from env file %s", len(fv.AllKeys()), path)
	return nil
}

// Load reads the configuration from v. runID is the positional argument of
// the command, CRON_RUN_ID is used when it is empty.
func Load(v *viper.Viper, runID string) (*Config, error) {
	cfg := &Config{
		RunID:            strings.TrimSpace(runID),
		QueryBackend:     strings.ToLower(v.GetString(KeyQueryBackend)),
		LoginAPIEndpoint: v.GetString(KeyLoginAPIEndpoint),
		DBAPIEndpoint:    v.GetString(KeyDBAPIEndpoint),
		Username:         v.GetString(KeyUsername),
		Password:         v.GetString(KeyPassword),
		DatabaseURL:      v.GetString(KeyDatabaseURL),
		SlackBotToken:    v.GetString(KeySlackBotToken),
		SlackChannelID:   v.GetString(KeySlackChannelID),
		SlackAPIURL:      strings.TrimRight(v.GetString(KeySlackAPIURL), "/"),
		SlackDisabled:    v.GetBool(KeyNoSlack),
		RepoVersion:      v.GetString(KeyRepoVersion),
		ReportsDir:       v.GetString(KeyReportsDir),
		Timeout:          v.GetDuration(KeyTimeout),
		BucketName:       v.GetString(KeyBucketName),
		BucketRegion:     v.GetString(KeyBucketRegion),
		Publish:          v.GetBool(KeyPublish),
		DryRun:           v.GetBool(KeyDryRun),
	}
	if cfg.RunID == "" {
		cfg.RunID = strings.TrimSpace(v.GetString(KeyRunID))
	}
	if out := v.GetString(KeyOutputDir); out != "" {
		cfg.ReportsDir = out
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = DefaultReportsDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SlackChannelID == "" {
		cfg.SlackChannelID = DefaultSlackChannel
	}
	if cfg.QueryBackend == "" {
		cfg.QueryBackend = BackendHTTP
	}

	if cfg.RunID == "" {
		return nil, &errs.UsageError{Message: "a run id is required, as argument or with " + KeyRunID}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.QueryBackend {
	case BackendHTTP:
		var missing []string
		for key, val := range map[string]string{
			KeyLoginAPIEndpoint: c.LoginAPIEndpoint,
			KeyDBAPIEndpoint:    c.DBAPIEndpoint,
			KeyUsername:         c.Username,
			KeyPassword:         c.Password,
		} {
			if val == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return &errs.UsageError{Message: "missing configuration: " + strings.Join(missing, ", ")}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return &errs.UsageError{Message: "missing configuration: " + KeyDatabaseURL}
		}
	default:
		return &errs.UsageError{Message: "unknown " + KeyQueryBackend + " " + c.QueryBackend}
	}
	if c.Publish && c.BucketName == "" {
		return &errs.UsageError{Message: "--publish requires " + KeyBucketName}
	}
	return nil
}

// SlackEnabled reports whether chat delivery is configured.
func (c *Config) SlackEnabled() bool {
	return !c.SlackDisabled && c.SlackBotToken != ""
}

// SlackConfig is the configuration of the Slack notifier. The token is left
// empty when delivery is disabled by flag.
func (c *Config) SlackConfig() slack.Config {
	cfg := slack.Config{
		APIURL:   c.SlackAPIURL,
		Timeout:  c.Timeout,
		RetryMax: DefaultRetryMax,
	}
	if c.SlackEnabled() {
		cfg.Token = c.SlackBotToken
	}
	return cfg
}

// PublishConfig is the configuration of the S3 publisher.
func (c *Config) PublishConfig() publish.Config {
	return publish.Config{
		Bucket: c.BucketName,
		Region: c.BucketRegion,
		DryRun: c.DryRun,
	}
}

// HTTPQueryConfig is the configuration of the dbQuery HTTP executor.
func (c *Config) HTTPQueryConfig() dbquery.HTTPConfig {
	return dbquery.HTTPConfig{
		LoginURL: c.LoginAPIEndpoint,
		QueryURL: c.DBAPIEndpoint,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout,
		RetryMax: DefaultRetryMax,
	}
}

// NewExecutor creates the query executor of the configured backend. The
// returned close function releases its resources.
func (c *Config) NewExecutor() (dbquery.Executor, func() error, error) {
	if c.QueryBackend == BackendPostgres {
		exec, err := dbquery.OpenSQLExecutor(c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return exec, exec.Close, nil
	}
	return dbquery.NewHTTPExecutor(c.HTTPQueryConfig()), func() error { return nil }, nil
}
