package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digitalroom/internal/catalog"
	"digitalroom/internal/editor"
	"digitalroom/internal/export"
	"digitalroom/internal/seed"
)

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [entity...]",
		Short: "Write archives to an .xlsx workbook, one sheet per archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := catalog.All()
			if len(args) > 0 {
				schemas = schemas[:0]
				for _, name := range args {
					s, err := schemaFor(name, "")
					if err != nil {
						return err
					}
					schemas = append(schemas, s)
				}
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			sheets, err := export.Collect(cmd.Context(), a.rows, schemas)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteWorkbook(f, sheets); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("exported workbook", zap.String("path", out), zap.Int("sheets", len(sheets)))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "digitalroom.xlsx", "output path")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create records from a YAML document keyed by entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := seed.Parse(f)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := seed.Apply(cmd.Context(), a.rows, doc,
				editor.WithLogger(logger.Named("seed")),
				editor.WithSortGap(cfg.Editor.SortGap, cfg.Editor.SortBaseline))
			for _, s := range doc.Sections {
				if n := res.Created[s.Entity]; n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %d\n", s.Entity, n)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d record(s)\n", res.Total())
			return nil
		},
	}
}
