package summary

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Column names of the module records returned by the query service.
const (
	FieldModuleName  = "module_name"
	FieldRunData     = "run_data"
	FieldStartedAt   = "started_at"
	FieldCompletedAt = "completed_at"
	FieldReportLink  = "slack_report_link"
	FieldRunEnv      = "runenv"
	FieldRunBy       = "username"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseModuleRecord validates and defaults one module record at the boundary,
// producing a ModuleSummary. environment and runBy are inherited from the run
// and only used when the record does not carry them.
func ParseModuleRecord(rec map[string]any, environment, runBy string) (ModuleSummary, error) {
	name := asString(rec[FieldModuleName])
	if name == "" {
		return ModuleSummary{}, errors.New("module record without module_name")
	}

	outcomes, err := parseRunData(rec[FieldRunData])
	if err != nil {
		return ModuleSummary{}, errors.Wrapf(err, "module %q", name)
	}

	if env := asString(rec[FieldRunEnv]); env != "" {
		environment = env
	}
	if by := asString(rec[FieldRunBy]); by != "" {
		runBy = by
	}
	meta := ModuleMeta{
		StartedAt:          asTime(rec[FieldStartedAt]),
		CompletedAt:        asTime(rec[FieldCompletedAt]),
		ExternalReportLink: asString(rec[FieldReportLink]),
		Environment:        environment,
		RunBy:              runBy,
	}
	return Aggregate(name, outcomes, meta), nil
}

// parseRunData reads the tests array from the run_data document, which is
// stored as JSONB and may arrive either decoded or as a JSON string.
func parseRunData(raw any) ([]TestOutcome, error) {
	var doc map[string]any
	switch v := raw.(type) {
	case nil:
		return []TestOutcome{}, nil
	case map[string]any:
		doc = v
	case string:
		if strings.TrimSpace(v) == "" {
			return []TestOutcome{}, nil
		}
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, errors.Wrap(err, "invalid run_data")
		}
	case []byte:
		if err := json.Unmarshal(v, &doc); err != nil {
			return nil, errors.Wrap(err, "invalid run_data")
		}
	default:
		return nil, errors.Errorf("unsupported run_data type %T", raw)
	}

	rawTests, ok := doc["tests"].([]any)
	if !ok {
		return []TestOutcome{}, nil
	}
	outcomes := make([]TestOutcome, 0, len(rawTests))
	for idx, item := range rawTests {
		test, ok := item.(map[string]any)
		if !ok {
			log.Debugf("ParseModuleRecord(): ignoring test entry %d of type %T", idx, item)
			continue
		}
		outcomes = append(outcomes, ParseTestOutcome(test))
	}
	return outcomes, nil
}

// ParseTestOutcome defaults every field of a single test entry.
func ParseTestOutcome(test map[string]any) TestOutcome {
	name := asString(test["name"])
	if name == "" {
		name = asString(test["title"])
	}
	if name == "" {
		name = UnknownTestName
	}
	duration := asDuration(test["duration_ms"])
	if _, ok := test["duration_ms"]; !ok {
		duration = asDuration(test["duration"])
	}
	return TestOutcome{
		Name:       name,
		Status:     ParseStatus(asString(test["status"])),
		Priority:   ParsePriority(asString(test["priority"])),
		DurationMs: duration,
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	}
	return ""
}

// asDuration returns nil for missing, malformed and negative values.
func asDuration(v any) *float64 {
	var d float64
	switch n := v.(type) {
	case float64:
		d = n
	case float32:
		d = float64(n)
	case int:
		d = float64(n)
	case int64:
		d = float64(n)
	case int32:
		d = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		d = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		d = f
	default:
		return nil
	}
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	return &d
}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed
			}
		}
		log.Debugf("ParseModuleRecord(): unable to parse timestamp %q", s)
	}
	return nil
}
