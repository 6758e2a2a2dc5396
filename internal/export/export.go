// Package export writes archive records to spreadsheet formats.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"digitalroom/internal/editor"
	"digitalroom/pkg/domain"
)

// Sheet is one entity worth of rows.
type Sheet struct {
	Schema  editor.Schema
	Records []domain.Record
}

// Columns lists the header row: id, every schema field, created_at.
func Columns(schema editor.Schema) []string {
	cols := make([]string, 0, len(schema.Fields)+2)
	cols = append(cols, domain.FieldID)
	for _, f := range schema.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, domain.FieldCreatedAt)
}

// CellValue flattens a stored value for a spreadsheet cell. Tags are joined,
// nested lists and maps become JSON.
func CellValue(f editor.Field, v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		if f.Kind == editor.KindTags {
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			return editor.JoinTags(parts)
		}
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return val
	}
}

func row(schema editor.Schema, r domain.Record) []any {
	out := make([]any, 0, len(schema.Fields)+2)
	out = append(out, string(r.ID))
	for _, f := range schema.Fields {
		out = append(out, CellValue(f, r.Values[f.Name]))
	}
	return append(out, CellValue(editor.Field{}, r.Values[domain.FieldCreatedAt]))
}

// WriteXLSX writes a single-sheet workbook.
func WriteXLSX(w io.Writer, schema editor.Schema, records []domain.Record) error {
	return WriteWorkbook(w, []Sheet{{Schema: schema, Records: records}})
}

// WriteWorkbook writes one sheet per entity, in the given order.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("export: no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		name := sh.Schema.Entity
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		header := make([]any, 0)
		for _, c := range Columns(sh.Schema) {
			header = append(header, c)
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for j, r := range sh.Records {
			values := row(sh.Schema, r)
			cell := "A" + strconv.Itoa(j+2)
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", j+2, err)
			}
		}
	}
	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes a header row and one line per record.
func WriteCSV(w io.Writer, schema editor.Schema, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(schema)); err != nil {
		return err
	}
	for _, r := range records {
		values := row(schema, r)
		line := make([]string, len(values))
		for i, v := range values {
			switch val := v.(type) {
			case string:
				line[i] = val
			case float64:
				line[i] = strconv.FormatFloat(val, 'f', -1, 64)
			default:
				line[i] = fmt.Sprint(val)
			}
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Collect selects every schema's table concurrently, keeping schema order.
func Collect(ctx context.Context, store domain.RowStore, schemas []editor.Schema) ([]Sheet, error) {
	sheets := make([]Sheet, len(schemas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, s := range schemas {
		g.Go(func() error {
			recs, err := store.Select(gctx, s.Table, s.Query(nil))
			if err != nil {
				return fmt.Errorf("select %s: %w", s.Table, err)
			}
			sheets[i] = Sheet{Schema: s, Records: recs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sheets, nil
}
