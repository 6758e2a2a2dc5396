// Package domain defines the record model shared by the row stores, the
// editors and the archive views.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID is a store-assigned primary key. Serial tables use decimal strings,
// UUID tables use the canonical UUID text form.
type ID string

// FieldID is the reserved column name carrying a record's primary key.
const FieldID = "id"

// FieldSortOrder is the conventional advisory display-ordering column.
const FieldSortOrder = "sort_order"

// FieldCreatedAt is stamped by stores on insert when absent.
const FieldCreatedAt = "created_at"

// Record is one row of a remote table.
type Record struct {
	ID     ID             `json:"id"`
	Values map[string]any `json:"values"`
}

// Get returns the raw value stored under field. The id is addressable as
// FieldID.
func (r Record) Get(field string) (any, bool) {
	if field == FieldID {
		return string(r.ID), r.ID != ""
	}
	v, ok := r.Values[field]
	return v, ok
}

// String returns field as a string or def when absent.
func (r Record) String(field, def string) string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return def
	}
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// Int returns field as an int64 or def when absent or not numeric.
func (r Record) Int(field string, def int64) int64 {
	v, ok := r.Get(field)
	if !ok {
		return def
	}
	if n, ok := AsInt(v); ok {
		return n
	}
	return def
}

// Float returns field as a float64 or def when absent or not numeric.
func (r Record) Float(field string, def float64) float64 {
	v, ok := r.Get(field)
	if !ok {
		return def
	}
	if f, ok := AsFloat(v); ok {
		return f
	}
	return def
}

// Strings returns a list field as strings. A plain string is returned as a
// single element slice.
func (r Record) Strings(field string) []string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{fmt.Sprint(val)}
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Values: CloneValues(r.Values)}
}

// CloneValues deep-copies a value map.
func CloneValues(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		return CloneValues(val)
	default:
		return val
	}
}

// Normalize converts v into the canonical value set used across stores:
// string, int64, float64, bool, nil, []any and map[string]any. Integral
// floats stay float64; only integer Go types and integral json.Numbers become
// int64.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint:
		return fromUint64(uint64(val))
	case uint64:
		return fromUint64(val)
	case float32:
		return float64(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = NormalizeValues(m)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		return NormalizeValues(val)
	default:
		return fmt.Sprint(val)
	}
}

// fromUint64 keeps values beyond int64 range as float64 rather than wrapping.
func fromUint64(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// NormalizeValues applies Normalize to every entry of m, returning a copy.
func NormalizeValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

// AsInt coerces numeric values and numeric strings to int64.
func AsInt(v any) (int64, bool) {
	switch val := Normalize(v).(type) {
	case int64:
		return val, true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int64(val), true
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
	}
	return 0, false
}

// AsFloat coerces numeric values and numeric strings to float64.
func AsFloat(v any) (float64, bool) {
	switch val := Normalize(v).(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
