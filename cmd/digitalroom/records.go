package main

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"digitalroom/internal/catalog"
	"digitalroom/internal/editor"
	"digitalroom/internal/export"
	"digitalroom/internal/icons"
	"digitalroom/pkg/domain"
)

func newEntitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the archives and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range catalog.Names() {
				s, _ := catalog.Lookup(name)
				fields := make([]string, 0, len(s.Fields))
				for _, f := range s.Fields {
					fields = append(fields, f.Name+":"+f.Kind.String())
				}
				fmt.Fprintf(out, "%-18s %s\n", name, strings.Join(fields, " "))
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var category, sortField string
	var desc bool
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Print the records of an archive in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemaFor(args[0], category)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ed, _, err := a.newEditor(cmd.Context(), schema, false)
			if err != nil {
				return err
			}
			defer ed.Close()
			if err := ed.Load(cmd.Context()); err != nil {
				return err
			}
			if sortField != "" {
				if _, ok := schema.Field(sortField); !ok {
					return fmt.Errorf("%w: %s", editor.ErrUnknownField, sortField)
				}
				ed.SortBy(sortField)
				if desc {
					ed.SortBy(sortField)
				}
			}
			renderRecords(cmd.OutOrStdout(), schema, ed.Records())
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "prompt category id (prompts only)")
	cmd.Flags().StringVar(&sortField, "sort", "", "sort locally by field")
	cmd.Flags().BoolVar(&desc, "desc", false, "with --sort, sort descending")
	return cmd
}

func renderRecords(w io.Writer, schema editor.Schema, records []domain.Record) {
	cols := export.Columns(schema)
	_, hasIcon := schema.Field("icon")
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			if c == domain.FieldID {
				row = append(row, string(r.ID))
				continue
			}
			v, _ := r.Get(c)
			cell := ""
			if f, ok := schema.Field(c); ok {
				cell = fmt.Sprint(export.CellValue(f, v))
			} else if v != nil {
				cell = fmt.Sprint(v)
			}
			if c == "icon" && hasIcon {
				cell = icons.Lookup(cell) + " " + cell
			}
			row = append(row, truncate(cell, 40))
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(cols...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d %s\n", len(records), schema.Entity)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// parseAssignments turns repeated key=value flags into a field map.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, want field=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func newAddCmd() *cobra.Command {
	var category string
	var sets []string
	cmd := &cobra.Command{
		Use:   "add <entity>",
		Short: "Create a record with the default sort order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemaFor(args[0], category)
			if err != nil {
				return err
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ed, _, err := a.newEditor(cmd.Context(), schema, false)
			if err != nil {
				return err
			}
			defer ed.Close()
			if err := ed.Load(cmd.Context()); err != nil {
				return err
			}
			if err := ed.BeginCreate(); err != nil {
				return err
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if err := ed.UpdateDraftField(k, values[k]); err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
			}
			saved, err := ed.Save(cmd.Context())
			if saved.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s %q\n", schema.Entity, saved.ID, schema.Title(saved))
			return err
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "prompt category id (prompts only)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value, repeatable")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record forever",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemaFor(args[0], "")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ed, _, err := a.newEditor(cmd.Context(), schema, false)
			if err != nil {
				return err
			}
			defer ed.Close()
			if err := ed.Load(cmd.Context()); err != nil {
				return err
			}
			var confirm editor.Confirmer = editor.Confirmed
			if !yes {
				confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout(), schema)
			}
			if err := ed.Delete(cmd.Context(), domain.ID(args[1]), confirm); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", schema.Entity, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func promptConfirm(in io.Reader, out io.Writer, schema editor.Schema) editor.Confirmer {
	return editor.ConfirmFunc(func(r domain.Record) bool {
		fmt.Fprintf(out, "Delete %s %q forever? [y/N] ", strings.ToLower(schema.DisplayName()), schema.Title(r))
		line, _ := bufio.NewReader(in).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <entity> <id> <field> <file>",
		Short: "Upload an image into a record's image field",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemaFor(args[0], "")
			if err != nil {
				return err
			}
			f, err := os.Open(args[3])
			if err != nil {
				return err
			}
			defer f.Close()
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ed, _, err := a.newEditor(cmd.Context(), schema, true)
			if err != nil {
				return err
			}
			defer ed.Close()
			if err := ed.Load(cmd.Context()); err != nil {
				return err
			}
			rec, ok := ed.Record(domain.ID(args[1]))
			if !ok {
				return domain.ErrNotFound{Table: schema.Table, ID: domain.ID(args[1])}
			}
			if err := ed.BeginEdit(rec); err != nil {
				return err
			}
			name := filepath.Base(args[3])
			url, err := ed.AttachFile(cmd.Context(), args[2], name, f, mime.TypeByExtension(filepath.Ext(name)))
			if err != nil {
				_ = ed.CancelEdit()
				return err
			}
			if _, err := ed.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
