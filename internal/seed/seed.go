// Package seed loads archive records from YAML documents through the editor,
// so validation and default sort orders apply exactly as for manual entry.
package seed

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"digitalroom/internal/catalog"
	"digitalroom/internal/editor"
	"digitalroom/pkg/domain"
)

// Section is the list of entries for one entity, in document order.
type Section struct {
	Entity  string
	Entries []map[string]any
}

// Document is a parsed seed file.
type Document struct {
	Sections []Section
}

// Result counts created records per entity.
type Result struct {
	Created map[string]int
}

// Total is the number of created records.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Created {
		n += c
	}
	return n
}

// Parse reads a YAML mapping of entity name to a list of field maps.
func Parse(r io.Reader) (Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("parse seed: %w", err)
	}
	if len(root.Content) == 0 {
		return Document{}, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("parse seed: line %d: expected a mapping of entity to entries", top.Line)
	}
	var doc Document
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		var entries []map[string]any
		if err := value.Decode(&entries); err != nil {
			return Document{}, fmt.Errorf("parse seed: %s (line %d): %w", key.Value, key.Line, err)
		}
		doc.Sections = append(doc.Sections, Section{Entity: key.Value, Entries: entries})
	}
	return doc, nil
}

// Apply creates every entry through an editor bound to store. It stops at
// the first failure, returning what was created so far.
func Apply(ctx context.Context, store domain.RowStore, doc Document, opts ...editor.Option) (Result, error) {
	res := Result{Created: make(map[string]int)}
	for _, sec := range doc.Sections {
		schema, ok := catalog.Lookup(sec.Entity)
		if !ok {
			return res, fmt.Errorf("seed: unknown entity %q", sec.Entity)
		}
		ed, err := editor.New(schema, store, opts...)
		if err != nil {
			return res, err
		}
		if err := ed.Load(ctx); err != nil {
			ed.Close()
			return res, fmt.Errorf("seed %s: %w", sec.Entity, err)
		}
		for i, entry := range sec.Entries {
			if err := create(ctx, ed, entry); err != nil {
				ed.Close()
				return res, fmt.Errorf("seed %s[%d]: %w", sec.Entity, i, err)
			}
			res.Created[sec.Entity]++
		}
		ed.Close()
	}
	return res, nil
}

func create(ctx context.Context, ed *editor.Editor, entry map[string]any) error {
	if err := ed.BeginCreate(); err != nil {
		return err
	}
	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ed.UpdateDraftField(k, entry[k]); err != nil {
			_ = ed.CancelEdit()
			return err
		}
	}
	if _, err := ed.Save(ctx); err != nil {
		_ = ed.CancelEdit()
		return err
	}
	return nil
}
