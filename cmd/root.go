package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "regex-validate",
	Short: "Validate LLM-proposed regexes against example files",
	Long: "Checks candidate regular expressions from an NDJSON stream of model answers against " +
		"positive and negative example files, annotates each record with its verdict and reports pass rates.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
