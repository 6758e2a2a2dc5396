package editor

import (
	"fmt"
	"strconv"
	"strings"

	"digitalroom/pkg/domain"
)

// Kind is the input type of a schema field. It decides how draft values are
// coerced, displayed and turned back into a persistence payload.
type Kind int

const (
	KindString Kind = iota
	KindText
	KindInt
	KindFloat
	KindEnum
	KindBool
	KindTags   // []string persisted, delimited string in the draft
	KindList   // ordered sub-records described by SubFields
	KindImage  // single public URL
	KindImages // ordered list of public URLs; index 0 is the cover
)

var kindNames = map[Kind]string{
	KindString: "string", KindText: "text", KindInt: "int", KindFloat: "float",
	KindEnum: "enum", KindBool: "bool", KindTags: "tags", KindList: "list",
	KindImage: "image", KindImages: "images",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field describes one editable field.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	Default   any
	Options   []string // KindEnum
	SubFields []Field  // KindList
}

// DisplayLabel falls back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Schema parameterises an editor for one entity.
type Schema struct {
	Entity     string // catalog name, e.g. "anime"
	Label      string // human label, e.g. "Anime"
	Table      string
	TitleField string
	Fields     []Field
	// Order is the server-side ordering; empty means sort_order then id.
	Order []domain.Order
	// Filters are equality filters always applied on Load.
	Filters []domain.Filter
	// Bucket receives uploads for image fields.
	Bucket     string
	IDStrategy domain.IDStrategy
	// Validate runs after required-field checks on the persistence payload.
	Validate func(values map[string]any) error
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasSortOrder reports whether the schema carries a sort_order field.
func (s Schema) HasSortOrder() bool {
	_, ok := s.Field(domain.FieldSortOrder)
	return ok
}

// Query builds the Load query: schema filters, extra filters, ordering.
func (s Schema) Query(extra []domain.Filter) domain.Query {
	q := domain.Query{Order: s.Order}
	if len(q.Order) == 0 {
		q.Order = domain.DefaultOrder()
	}
	q.Order = domain.WithIDTiebreak(q.Order)
	q.Filters = append(append([]domain.Filter(nil), s.Filters...), extra...)
	return q
}

// DisplayName is the label used in notices.
func (s Schema) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Entity
}

// Title returns the record's title field as text.
func (s Schema) Title(r domain.Record) string {
	if s.TitleField == "" {
		return string(r.ID)
	}
	return r.String(s.TitleField, string(r.ID))
}

// Check reports structural problems: duplicate or empty names, enums
// without options, lists without sub-fields, a missing title field.
func (s Schema) Check() error {
	if s.Entity == "" || s.Table == "" {
		return fmt.Errorf("schema: entity and table required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" || f.Name == domain.FieldID {
			return fmt.Errorf("schema %s: invalid field name %q", s.Entity, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Entity, f.Name)
		}
		seen[f.Name] = true
		switch f.Kind {
		case KindEnum:
			if len(f.Options) == 0 {
				return fmt.Errorf("schema %s: enum %q has no options", s.Entity, f.Name)
			}
		case KindList:
			if len(f.SubFields) == 0 {
				return fmt.Errorf("schema %s: list %q has no sub-fields", s.Entity, f.Name)
			}
		}
	}
	if s.TitleField != "" && !seen[s.TitleField] {
		return fmt.Errorf("schema %s: title field %q not declared", s.Entity, s.TitleField)
	}
	return nil
}
