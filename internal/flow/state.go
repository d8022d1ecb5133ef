package flow

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// State is the booking payload accumulated across steps. Values are the
// JSON-shaped types a client sends: strings, numbers, bools, lists and maps.
type State map[string]any

// Clone returns a copy that shares no maps or slices with s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case State:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]int:
		m := make(map[string]int, len(t))
		for k, n := range t {
			m[k] = n
		}
		return m
	default:
		return v
	}
}

// Merge adds or overwrites the keys of partial. Keys are never removed and a
// nil value is ignored, so a partial cannot clear a field.
func (s State) Merge(partial map[string]any) {
	for k, v := range partial {
		if v == nil || strings.TrimSpace(k) == "" {
			continue
		}
		s[k] = cloneValue(v)
	}
}

// Has reports whether key holds a non-empty value. false and 0 count as set.
func (s State) Has(key string) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case map[string]int:
		return len(t) > 0
	}
	return true
}

// MissingOf returns the keys that are not set, in order.
func (s State) MissingOf(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !s.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

func (s State) String(key string) string {
	switch t := s[key].(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func (s State) Int(key string) int64 {
	n, _ := toInt(s[key])
	return n
}

func (s State) Float(key string) float64 {
	f, _ := toFloat(s[key])
	return f
}

func (s State) Bool(key string) bool {
	switch t := s[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// Strings reads a list of strings, skipping non-string entries.
func (s State) Strings(key string) []string {
	switch t := s[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if str, ok := v.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return nil
}

// Quantities reads an id -> count map, dropping non-positive counts.
func (s State) Quantities(key string) map[string]int {
	out := map[string]int{}
	switch t := s[key].(type) {
	case map[string]int:
		for k, n := range t {
			if n > 0 {
				out[k] = n
			}
		}
	case map[string]any:
		for k, v := range t {
			if n, ok := toInt(v); ok && n > 0 {
				out[k] = int(n)
			}
		}
	}
	return out
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return floatToInt(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return floatToInt(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// floatToInt rounds f, rejecting values outside the int64 range.
func floatToInt(f float64) (int64, bool) {
	r := math.Round(f)
	if math.IsNaN(r) || r >= math.MaxInt64 || r < math.MinInt64 {
		return 0, false
	}
	return int64(r), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
