package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regex-validate/internal/export"
)

var exportNoStore bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Merge passing regexes into the solutions database",
	Long: "Copies the chosen regex of every passing validated record onto the matching solution, " +
		"writes the merged NDJSON and loads it into the regex_data table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f := cmd.Flags()
		for flag, dst := range map[string]*string{
			"validated": &cfg.Export.ValidatedPath,
			"solutions": &cfg.Export.SolutionsPath,
			"output":    &cfg.Export.OutputPath,
			"xlsx":      &cfg.Export.XLSXPath,
		} {
			if f.Changed(flag) {
				*dst, _ = f.GetString(flag)
			}
		}
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		var saver export.Saver
		if !exportNoStore {
			st, err := initStore(ctx, cfg.Store)
			if err != nil {
				return eris.Wrap(err, "export: open store")
			}
			defer st.Close() //nolint:errcheck
			saver = st
		}

		sum, err := export.Run(ctx, export.Options{
			ValidatedPath: cfg.Export.ValidatedPath,
			SolutionsPath: cfg.Export.SolutionsPath,
			OutputPath:    cfg.Export.OutputPath,
			XLSXPath:      cfg.Export.XLSXPath,
		}, saver)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Solutions: %d, Updated: %d, Skipped: %d, Stored: %d\n",
			sum.Solutions, sum.Updated, sum.Skipped, sum.Stored)
		return err
	},
}

func init() {
	f := exportCmd.Flags()
	f.String("validated", "", "annotated NDJSON from validate (export.validated_path)")
	f.String("solutions", "", "solutions NDJSON keyed by id (export.solutions_path)")
	f.String("output", "", "merged NDJSON output (export.output_path)")
	f.String("xlsx", "", "optional verdict spreadsheet (export.xlsx_path)")
	f.BoolVar(&exportNoStore, "no-store", false, "write the merged NDJSON without loading the database")
	rootCmd.AddCommand(exportCmd)
}
