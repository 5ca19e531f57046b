package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/regex-validate/internal/report"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats <validated.ndjson>",
	Short: "Print verdict statistics for an annotated file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := report.Compute(args[0])
		if err != nil {
			return err
		}
		return report.Encode(cmd.OutOrStdout(), stats, statsFormat)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", report.FormatText, "output format: text, json or yaml")
	rootCmd.AddCommand(statsCmd)
}
