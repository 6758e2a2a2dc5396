package editor

import (
	"fmt"
	"strconv"
	"strings"

	"digitalroom/pkg/domain"
)

// TagSeparator joins tags for display.
const TagSeparator = ", "

// SplitTags splits on ASCII and full-width commas, trims entries and drops
// empty ones.
func SplitTags(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinTags is the display inverse of SplitTags.
func JoinTags(tags []string) string { return strings.Join(tags, TagSeparator) }

// Promote moves items[i] to the front, shifting the elements before it back
// by one. Out of range indexes return the input unchanged.
func Promote[T any](items []T, i int) []T {
	if i <= 0 || i >= len(items) {
		return items
	}
	out := make([]T, 0, len(items))
	out = append(out, items[i])
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// zero returns the draft value a field starts with before defaults.
func (f Field) zero() any {
	switch f.Kind {
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindBool:
		return false
	case KindList:
		return []map[string]any{}
	case KindImages:
		return []string{}
	case KindEnum:
		if len(f.Options) > 0 {
			return f.Options[0]
		}
		return ""
	default:
		return ""
	}
}

// initial is the default draft value of a field.
func (f Field) initial() any {
	if f.Default == nil {
		return f.zero()
	}
	return f.coerce(f.Default)
}

// coerce converts arbitrary input into the draft representation of f.
// Numbers that do not parse become zero.
func (f Field) coerce(v any) any { //nolint:cyclop
	switch f.Kind {
	case KindInt:
		n, _ := domain.AsInt(v)
		return n
	case KindFloat:
		x, _ := domain.AsFloat(v)
		return x
	case KindBool:
		return asBool(v)
	case KindTags:
		switch val := v.(type) {
		case []string:
			return JoinTags(val)
		case []any:
			return JoinTags(toStrings(val))
		}
		return asString(v)
	case KindList:
		return f.coerceList(v)
	case KindImages:
		switch val := v.(type) {
		case []string:
			return append([]string{}, val...)
		case []any:
			return toStrings(val)
		case string:
			if strings.TrimSpace(val) == "" {
				return []string{}
			}
			return []string{val}
		}
		return []string{}
	default:
		return asString(v)
	}
}

func (f Field) coerceList(v any) []map[string]any {
	var raw []map[string]any
	switch val := v.(type) {
	case []map[string]any:
		raw = val
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				raw = append(raw, m)
			}
		}
	}
	out := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		out = append(out, f.coerceItem(m))
	}
	return out
}

func (f Field) coerceItem(m map[string]any) map[string]any {
	item := make(map[string]any, len(f.SubFields))
	for _, sf := range f.SubFields {
		if v, ok := m[sf.Name]; ok && v != nil {
			item[sf.Name] = sf.coerce(v)
		} else {
			item[sf.Name] = sf.initial()
		}
	}
	return item
}

func (f Field) blankItem() map[string]any {
	return f.coerceItem(nil)
}

// isBlank reports whether a draft value counts as empty for required checks
// and for dropping sub-records.
func (f Field) isBlank(v any) bool {
	switch f.Kind {
	case KindInt, KindFloat, KindBool:
		return false
	case KindTags:
		return len(SplitTags(asString(v))) == 0
	case KindList:
		items, _ := v.([]map[string]any)
		for _, it := range items {
			if !f.itemBlank(it) {
				return false
			}
		}
		return true
	case KindImages:
		urls, _ := v.([]string)
		for _, u := range urls {
			if strings.TrimSpace(u) != "" {
				return false
			}
		}
		return true
	default:
		return strings.TrimSpace(asString(v)) == ""
	}
}

func (f Field) itemBlank(item map[string]any) bool {
	for _, sf := range f.SubFields {
		switch sf.Kind {
		case KindString, KindText, KindTags, KindImage:
			if !sf.isBlank(item[sf.Name]) {
				return false
			}
		}
	}
	return true
}

// persist converts a draft value into its stored form.
func (f Field) persist(v any) any { //nolint:cyclop
	switch f.Kind {
	case KindInt:
		n, _ := domain.AsInt(v)
		return n
	case KindFloat:
		x, _ := domain.AsFloat(v)
		return x
	case KindBool:
		return asBool(v)
	case KindEnum:
		s := asString(v)
		if strings.TrimSpace(s) == "" {
			return asString(f.initial())
		}
		return s
	case KindTags:
		tags := SplitTags(asString(v))
		out := make([]any, len(tags))
		for i, t := range tags {
			out[i] = t
		}
		return out
	case KindList:
		items, _ := v.([]map[string]any)
		out := make([]any, 0, len(items))
		for _, it := range items {
			if f.itemBlank(it) {
				continue
			}
			row := make(map[string]any, len(f.SubFields))
			for _, sf := range f.SubFields {
				row[sf.Name] = sf.persist(it[sf.Name])
			}
			out = append(out, row)
		}
		return out
	case KindImages:
		urls, _ := v.([]string)
		out := make([]any, 0, len(urls))
		for _, u := range urls {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
		return out
	default:
		return asString(v)
	}
}

// display converts a stored value into its draft form.
func (f Field) display(v any) any {
	if v == nil {
		return f.initial()
	}
	if f.Kind == KindEnum {
		return asString(v)
	}
	return f.coerce(v)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "yes", "y", "on":
			return true
		}
		return false
	default:
		n, ok := domain.AsInt(v)
		return ok && n != 0
	}
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, asString(v))
	}
	return out
}

func cloneDraftValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string{}, val...)
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, m := range val {
			out[i] = domain.CloneValues(m)
		}
		return out
	default:
		return val
	}
}

func cloneDraft(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneDraftValue(v)
	}
	return out
}
