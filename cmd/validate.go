package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/config"
	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/pipeline"
	"github.com/sells-group/regex-validate/internal/regex"
	"github.com/sells-group/regex-validate/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate candidate regexes and report pass rates",
	Long: "Reads model answers from an NDJSON file, tests every candidate regex against the " +
		"example file named by file_id, writes the annotated stream and prints the summary statistics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyValidateFlags(cmd, cfg)
		if err := cfg.Validate("validate"); err != nil {
			return err
		}
		return runValidate(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	f := validateCmd.Flags()
	f.String("ndjson", "", "NDJSON file of model answers (validate.ndjson_path)")
	f.String("dir", "", "directory of <file_id> example files (validate.directory_path)")
	f.String("output", "", "annotated output path (validate.output_path)")
	f.Bool("in-place", false, "overwrite the input file with the annotated stream")
	f.String("ext", "", "example file extension (validate.extension)")
	f.Int("concurrency", 0, "records evaluated in parallel (validate.concurrency)")
	f.String("dialect", "", "regex dialect: ecmascript or re2 (regex.dialect)")
	f.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	f.Bool("record-run", false, "record the run in the configured store")
	rootCmd.AddCommand(validateCmd)
}

// applyValidateFlags copies explicitly set flags over the loaded config.
func applyValidateFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("ndjson") {
		c.Validation.NDJSONPath, _ = f.GetString("ndjson")
	}
	if f.Changed("dir") {
		c.Validation.DirectoryPath, _ = f.GetString("dir")
	}
	if f.Changed("output") {
		c.Validation.OutputPath, _ = f.GetString("output")
	}
	if f.Changed("in-place") {
		c.Validation.InPlace, _ = f.GetBool("in-place")
	}
	if f.Changed("ext") {
		c.Validation.Extension, _ = f.GetString("ext")
	}
	if f.Changed("concurrency") {
		c.Validation.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("dialect") {
		c.Regex.Dialect, _ = f.GetString("dialect")
	}
	if f.Changed("metrics-file") {
		c.Metrics.Textfile, _ = f.GetString("metrics-file")
	}
	if f.Changed("record-run") {
		c.Validation.RecordRun, _ = f.GetBool("record-run")
	}
}

// runValidate runs the pipeline, then reads the written stream back and
// prints its statistics to out.
func runValidate(ctx context.Context, c *config.Config, out io.Writer) error {
	engine, err := regex.NewEngine(regex.Dialect(c.Regex.Dialect), time.Duration(c.Regex.MatchTimeoutMs)*time.Millisecond)
	if err != nil {
		return err
	}

	output := c.Validation.OutputPath
	if c.Validation.InPlace {
		output = c.Validation.NDJSONPath
	}

	sum, err := pipeline.Run(ctx, pipeline.Options{
		NDJSONPath:    c.Validation.NDJSONPath,
		DirectoryPath: c.Validation.DirectoryPath,
		OutputPath:    output,
		Extension:     c.Validation.Extension,
		Concurrency:   c.Validation.Concurrency,
		Engine:        engine,
	})
	if err != nil {
		zap.L().Error("validate: run failed", zap.Error(err))
		return err
	}

	stats, err := report.Compute(sum.OutputPath)
	if err != nil {
		return eris.Wrap(err, "validate: compute statistics")
	}
	if err := report.Render(out, stats); err != nil {
		return err
	}

	if c.Metrics.Textfile != "" {
		if err := report.WriteTextfile(c.Metrics.Textfile, stats); err != nil {
			return err
		}
	}

	if c.Validation.RecordRun {
		st, err := initStore(ctx, c.Store)
		if err != nil {
			return eris.Wrap(err, "validate: open store")
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, model.Run{
			NDJSONPath: c.Validation.NDJSONPath,
			OutputPath: sum.OutputPath,
			Directory:  c.Validation.DirectoryPath,
			Dialect:    string(engine.Dialect()),
			Stats:      stats,
			NotFound:   sum.NotFound,
		})
		if err != nil {
			return eris.Wrap(err, "validate: record run")
		}
		zap.L().Info("validate: run recorded", zap.String("run_id", run.ID))
	}
	return nil
}
