package main

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regex-validate/internal/store"
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "Inspect the solutions database",
	Long:  "Commands for reading regex_data rows loaded by export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("solutions")
	},
}

var solutionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one solution row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("solutions show: invalid id %q", args[0])
		}

		ctx := cmd.Context()
		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return showSolution(ctx, st, id, cmd.OutOrStdout())
	},
}

func init() {
	solutionsCmd.AddCommand(solutionsShowCmd)
	rootCmd.AddCommand(solutionsCmd)
}

// showSolution writes the regex_data row with the given id as indented JSON.
func showSolution(ctx context.Context, st store.Store, id int64, w io.Writer) error {
	rd, err := st.GetRegexData(ctx, id)
	if err != nil {
		return eris.Wrap(err, "solutions show")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rd)
}
