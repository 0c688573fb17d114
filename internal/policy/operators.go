package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isNumber(v interface{}) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := toFloat(v)
	return ok
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

// equal compares a context value with a policy literal. Numbers, times and
// bools are coerced from the literal's form; strings compare case-insensitively.
func equal(actual, expected interface{}) bool {
	if list, ok := toList(actual); ok {
		want, ok := toList(expected)
		if !ok || len(list) != len(want) {
			return false
		}
		for _, w := range want {
			if !in(w, list) {
				return false
			}
		}
		return true
	}

	switch a := actual.(type) {
	case bool:
		b, ok := toBool(expected)
		return ok && a == b
	case time.Time:
		b, ok := toTime(expected)
		return ok && a.Equal(b)
	case string:
		if _, isList := toList(expected); isList {
			return false
		}
		return strings.EqualFold(a, fmt.Sprint(expected))
	}

	if isNumber(actual) {
		a, _ := toFloat(actual)
		b, ok := toFloat(expected)
		return ok && a == b
	}
	return false
}

// compare orders a context value against a policy literal. The second
// result is false when the two cannot be ordered.
func compare(actual, expected interface{}) (int, bool) {
	if a, ok := actual.(time.Time); ok {
		b, ok := toTime(expected)
		if !ok {
			return 0, false
		}
		switch {
		case a.Before(b):
			return -1, true
		case a.After(b):
			return 1, true
		default:
			return 0, true
		}
	}

	if isNumber(actual) {
		a, _ := toFloat(actual)
		b, ok := toFloat(expected)
		if !ok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}

	if a, ok := actual.(string); ok {
		b, ok := expected.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(strings.ToLower(a), strings.ToLower(b)), true
	}

	return 0, false
}

// in reports whether actual (or any element of it, for lists) is in expected
func in(actual, expected interface{}) bool {
	list, ok := toList(expected)
	if !ok {
		return false
	}
	if values, ok := toList(actual); ok {
		for _, v := range values {
			if in(v, list) {
				return true
			}
		}
		return false
	}
	for _, candidate := range list {
		if equal(actual, candidate) {
			return true
		}
	}
	return false
}

// contains is substring match for strings and membership for lists
func contains(actual, expected interface{}) bool {
	if values, ok := toList(actual); ok {
		for _, v := range values {
			if equal(v, expected) {
				return true
			}
		}
		return false
	}
	if s, ok := actual.(string); ok {
		needle := strings.ToLower(fmt.Sprint(expected))
		return needle != "" && strings.Contains(strings.ToLower(s), needle)
	}
	return false
}
