package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat coerces a decoded JSON value to a float64. Numbers and numeric
// strings parse; nil, empty, non-numeric text, booleans, NaN and infinities
// all give 0.
func ToFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		f = parseFloat(string(x))
	case string:
		f = parseFloat(x)
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToInt coerces v with ToFloat and truncates toward zero, saturating at
// the int64 range.
func ToInt(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i
		}
	}
	f := math.Trunc(ToFloat(v))
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// ToCount is ToInt clamped to be non-negative.
func ToCount(v any) int64 {
	return max(ToInt(v), 0)
}

// ToString renders a scalar for display. nil and empty strings give def.
func ToString(v any, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if x == "" {
			return def
		}
		return x
	case json.Number:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return def
}

// ToBool reports whether v is a true flag: a JSON true, a non-zero number,
// or a string strconv.ParseBool accepts as true.
func ToBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case json.Number:
		return ToFloat(x) != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	}
	return false
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
