package dbquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// BindLiterals replaces the $n placeholders of query with args rendered as
// SQL literals. The dbQuery service only accepts a query string, so values
// are quoted here instead of being interpolated by hand in each query.
func BindLiterals(query string, args ...any) (string, error) {
	var bindErr error
	used := make([]bool, len(args))
	out := placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
		idx, err := strconv.Atoi(m[1:])
		if err != nil || idx < 1 || idx > len(args) {
			if bindErr == nil {
				bindErr = fmt.Errorf("placeholder %s has no argument (got %d)", m, len(args))
			}
			return m
		}
		used[idx-1] = true
		lit, err := literal(args[idx-1])
		if err != nil && bindErr == nil {
			bindErr = err
		}
		return lit
	})
	if bindErr != nil {
		return "", bindErr
	}
	for i, ok := range used {
		if !ok {
			return "", fmt.Errorf("argument %d is not used by the query", i+1)
		}
	}
	return out, nil
}

func literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quote(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case time.Time:
		return quote(val.Format(time.RFC3339Nano)), nil
	}
	return "", fmt.Errorf("unsupported argument type %T", v)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
