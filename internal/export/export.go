// Package export merges validated answers into the solutions database.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/ndjson"
)

// Saver persists solution rows. store.Store satisfies it.
type Saver interface {
	UpsertRegexData(ctx context.Context, rows []model.RegexData) (int64, error)
}

// Options configures an export.
type Options struct {
	ValidatedPath string
	SolutionsPath string
	OutputPath    string
	XLSXPath      string
}

// Summary counts the outcome of an export.
type Summary struct {
	Solutions int   `json:"solutions"`
	Updated   int   `json:"updated"`
	Skipped   int   `json:"skipped"`
	Stored    int64 `json:"stored"`
}

// Merge copies the GPT-response of every passing validated record onto the
// solution whose id equals its file_id. A later passing record for the same
// id wins. Solutions keep the order of their first occurrence, with a
// repeated id taking the later entry. Missing RFixer-Solution and
// GPT-response fields are set to null. Solutions without an integral id are
// dropped and counted as skipped.
func Merge(validated, solutions []model.Record) ([]model.Record, *Summary, error) {
	sum := &Summary{}

	order := make([]int64, 0, len(solutions))
	byID := make(map[int64]model.Record, len(solutions))
	for _, sol := range solutions {
		id, ok := sol.ID()
		if !ok {
			sum.Skipped++
			zap.L().Warn("export: solution without integral id",
				zap.Int("line", sol.Line),
				zap.String("id", sol.Get(model.FieldID).Raw),
			)
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = sol
	}

	updated := make(map[int64]bool)
	for _, rec := range validated {
		if rec.Get(model.FieldPass).Type != gjson.True {
			continue
		}
		id, ok := rec.FileID()
		if !ok {
			continue
		}
		sol, ok := byID[id]
		if !ok {
			continue
		}
		answer := rec.Get(model.FieldResponse).Raw
		if answer == "" {
			answer = "null"
		}
		if err := sol.SetRaw(model.FieldResponse, []byte(answer)); err != nil {
			return nil, nil, err
		}
		byID[id] = sol
		updated[id] = true
	}

	out := make([]model.Record, 0, len(order))
	for _, id := range order {
		sol := byID[id]
		for _, field := range []string{model.FieldRFixerSolution, model.FieldResponse} {
			if sol.Get(field).Exists() {
				continue
			}
			if err := sol.SetRaw(field, []byte("null")); err != nil {
				return nil, nil, err
			}
		}
		out = append(out, sol)
	}

	sum.Solutions = len(out)
	sum.Updated = len(updated)
	return out, sum, nil
}

// Rows converts merged solutions into regex_data rows.
func Rows(records []model.Record) ([]model.RegexData, error) {
	rows := make([]model.RegexData, 0, len(records))
	for _, rec := range records {
		id, ok := rec.ID()
		if !ok {
			return nil, eris.Errorf("export: line %d has no integral id", rec.Line)
		}
		rows = append(rows, model.RegexData{
			ID:             id,
			Regex:          rec.Get(model.FieldRegex).String(),
			PositiveInputs: stringList(rec.Get(model.FieldPositiveInputs)),
			NegativeInputs: stringList(rec.Get(model.FieldNegativeInputs)),
			FilePath:       rec.Get(model.FieldFilePath).String(),
			RFixerSolution: nullableText(rec.Get(model.FieldRFixerSolution)),
			GPTResponse:    nullableText(rec.Get(model.FieldResponse)),
		})
	}
	return rows, nil
}

func stringList(res gjson.Result) []string {
	out := []string{}
	for _, item := range res.Array() {
		out = append(out, item.String())
	}
	return out
}

// nullableText returns nil for null or missing values, the string for
// strings and the raw JSON for anything else.
func nullableText(res gjson.Result) *string {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.String:
		s := res.String()
		return &s
	default:
		s := res.Raw
		return &s
	}
}

// Run merges opts.ValidatedPath into opts.SolutionsPath, writes the merged
// NDJSON to opts.OutputPath and stores the rows with saver. A nil saver
// skips the database load. When opts.XLSXPath is set, a verdict sheet of the
// validated records is written as well.
func Run(ctx context.Context, opts Options, saver Saver) (*Summary, error) {
	validated, err := ndjson.ReadFile(opts.ValidatedPath)
	if err != nil {
		return nil, eris.Wrap(err, "export: read validated")
	}
	solutions, err := ndjson.ReadFile(opts.SolutionsPath)
	if err != nil {
		return nil, eris.Wrap(err, "export: read solutions")
	}

	merged, sum, err := Merge(validated, solutions)
	if err != nil {
		return nil, err
	}
	if err := ndjson.WriteFile(opts.OutputPath, merged); err != nil {
		return nil, eris.Wrap(err, "export: write merged")
	}

	if saver != nil {
		rows, err := Rows(merged)
		if err != nil {
			return nil, err
		}
		if sum.Stored, err = saver.UpsertRegexData(ctx, rows); err != nil {
			return nil, eris.Wrap(err, "export: store rows")
		}
	}

	if opts.XLSXPath != "" {
		if err := WriteVerdicts(opts.XLSXPath, validated); err != nil {
			return nil, err
		}
	}

	zap.L().Info("export: solutions merged",
		zap.String("output", opts.OutputPath),
		zap.Int("solutions", sum.Solutions),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int64("stored", sum.Stored),
	)
	return sum, nil
}
