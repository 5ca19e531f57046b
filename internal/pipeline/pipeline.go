// Package pipeline wires the validation stages together: read the record
// stream, evaluate every record against its example file, write the
// annotated stream.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/regex-validate/internal/examples"
	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/ndjson"
	"github.com/sells-group/regex-validate/internal/regex"
)

// Options configures one validation run.
type Options struct {
	NDJSONPath    string
	DirectoryPath string
	// OutputPath receives the annotated stream. It may equal NDJSONPath.
	OutputPath  string
	Extension   string
	Concurrency int
	Engine      regex.Engine
}

// Summary describes what a run did. Verdict statistics come from reading the
// written stream back (see package report).
type Summary struct {
	Records    int           `json:"records"`
	Evaluated  int           `json:"evaluated"`
	NotFound   int           `json:"not_found"`
	OutputPath string        `json:"output_path"`
	Duration   time.Duration `json:"duration"`
}

func (o Options) validate() error {
	switch {
	case o.NDJSONPath == "":
		return eris.New("pipeline: ndjson path is required")
	case o.DirectoryPath == "":
		return eris.New("pipeline: directory path is required")
	case o.OutputPath == "":
		return eris.New("pipeline: output path is required")
	case o.Engine == nil:
		return eris.New("pipeline: regex engine is required")
	}
	return nil
}

// Run reads the record stream, annotates every record and writes the result
// to OutputPath. Records are processed concurrently and written in input
// order. Any failure reading the input or example directory, or writing the
// output, aborts the run before anything is written.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := zap.L().With(zap.String("input", opts.NDJSONPath))

	records, err := ndjson.ReadFile(opts.NDJSONPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read records")
	}
	log.Info("pipeline: records loaded", zap.Int("records", len(records)))

	ix, err := examples.NewIndex(opts.DirectoryPath, opts.Extension)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: index examples")
	}
	log.Info("pipeline: example files indexed",
		zap.String("directory", opts.DirectoryPath),
		zap.Int("files", ix.Len()),
	)

	p := &Processor{Index: ix, Engine: opts.Engine}
	var evaluated, notFound atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i := range records {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			found, err := p.Process(&records[i])
			if err != nil {
				return err
			}
			if found {
				evaluated.Add(1)
			} else {
				notFound.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: process records")
	}

	if err := ndjson.WriteFile(opts.OutputPath, records); err != nil {
		return nil, eris.Wrap(err, "pipeline: write output")
	}

	sum := &Summary{
		Records:    len(records),
		Evaluated:  int(evaluated.Load()),
		NotFound:   int(notFound.Load()),
		OutputPath: opts.OutputPath,
		Duration:   time.Since(start),
	}
	log.Info("pipeline: run complete",
		zap.String("output", sum.OutputPath),
		zap.Int("records", sum.Records),
		zap.Int("evaluated", sum.Evaluated),
		zap.Int("not_found", sum.NotFound),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// Processor annotates single records. It holds no mutable state and may be
// shared by concurrent callers.
type Processor struct {
	Index  *examples.Index
	Engine regex.Engine
}

// Process annotates rec in place. It reports found=false when no example
// file exists for the record's file_id, in which case only the pass sentinel
// is written.
func (p *Processor) Process(rec *model.Record) (found bool, err error) {
	id, ok := rec.FileID()
	var path string
	if ok {
		path, ok = p.Index.Lookup(id)
	}
	if !ok {
		zap.L().Debug("pipeline: example file not found",
			zap.Int("line", rec.Line),
			zap.String("file_id", rec.Get(model.FieldFileID).Raw),
		)
		return false, rec.MarkFileNotFound()
	}

	set, err := examples.Load(path)
	if err != nil {
		return true, eris.Wrapf(err, "pipeline: load examples for file_id %d", id)
	}

	sel := regex.SelectFor(p.Engine, rec.Candidates(), set)
	return true, rec.Annotate(sel)
}
