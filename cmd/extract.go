package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/regex-validate/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Pull tagged regex answers out of raw model responses",
	Long: "Rewrites GPT-response in every record to the regex found between ##<Regex>## tags: " +
		"a string for one answer, an array for several, null for none.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f := cmd.Flags()
		if f.Changed("input") {
			cfg.Extract.InputPath, _ = f.GetString("input")
		}
		if f.Changed("output") {
			cfg.Extract.OutputPath, _ = f.GetString("output")
		}
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		sum, err := extract.File(ctx, cfg.Extract.InputPath, cfg.Extract.OutputPath)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Records: %d, None: %d, Multiple: %d, Skipped: %d\n",
			sum.Records, sum.None, sum.Multiple, sum.Skipped)
		return err
	},
}

func init() {
	extractCmd.Flags().String("input", "", "raw responses NDJSON (extract.input_path)")
	extractCmd.Flags().String("output", "", "cleaned responses NDJSON (extract.output_path)")
	rootCmd.AddCommand(extractCmd)
}
