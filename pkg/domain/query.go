package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Order is one ordering key. Records missing the field sort last regardless
// of direction.
type Order struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Filter is an equality predicate evaluated against a single field.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Query selects and orders rows of a table.
type Query struct {
	Filters []Filter
	Order   []Order
}

// DefaultOrder is sort_order ascending with the id as tiebreak.
func DefaultOrder() []Order {
	return []Order{{Field: FieldSortOrder}, {Field: FieldID}}
}

// Matches reports whether r satisfies every filter in q.
func (q Query) Matches(r Record) bool {
	for _, f := range q.Filters {
		v, ok := r.Get(f.Field)
		if !ok {
			v = nil
		}
		if !ValuesEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// Apply filters and orders records, returning a new slice. The input is not
// modified.
func (q Query) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	SortRecords(out, q.Order)
	return out
}

// WithIDTiebreak appends an ascending id key unless order already has one.
func WithIDTiebreak(order []Order) []Order {
	for _, o := range order {
		if o.Field == FieldID {
			return order
		}
	}
	out := make([]Order, 0, len(order)+1)
	out = append(out, order...)
	return append(out, Order{Field: FieldID})
}

// SortRecords stably sorts records in place by order.
func SortRecords(records []Record, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range order {
			a, aok := records[i].Get(o.Field)
			b, bok := records[j].Get(o.Field)
			aok = aok && a != nil
			bok = bok && b != nil
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c := CompareValues(a, b)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// CompareValues orders two non-nil values. Numbers (including numeric
// strings such as serial ids) compare numerically, everything else compares
// as case-sensitive text.
func CompareValues(a, b any) int {
	af, aNum := numericValue(a)
	bf, bNum := numericValue(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// ValuesEqual compares values the way filters do: numbers by value,
// everything else by text form.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := numericValue(a)
	bf, bNum := numericValue(b)
	if aNum && bNum {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func numericValue(v any) (float64, bool) {
	switch val := Normalize(v).(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return float64(n), true
		}
	}
	return 0, false
}
