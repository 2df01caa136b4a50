package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// normalize maps data model and settings values onto the value domain of the
// language: nil, bool, float64 and string. Composite values are not
// addressable by expressions and become nil.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case fmt.Stringer:
		return v.String()
	default:
		return nil
	}
}

func castBool(value any, path []int, fn FuncKind) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch strings.TrimSpace(strings.ToLower(v)) {
		case "true", "1":
			return true, nil
		case "false", "0", "":
			return false, nil
		}
	}
	return false, newError(path, fn, ErrType, "expected boolean, got %s", describe(value))
}

// castNumber returns ok=false for nil.
func castNumber(value any, path []int, fn FuncKind) (float64, bool, error) {
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err == nil {
			return f, true, nil
		}
	}
	return 0, false, newError(path, fn, ErrType, "expected number, got %s", describe(value))
}

// castString returns ok=false for nil.
func castString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

func describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v (%T)", v, v)
	}
}
