// Package ndjson reads and writes newline-delimited JSON record streams.
package ndjson

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/model"
)

// Each calls fn for every non-blank line of r with its 1-based line number.
// Lines may be of any length. Iteration stops at the first error from fn.
func Each(r io.Reader, fn func(line int, raw []byte) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line := 0
	for {
		b, err := br.ReadBytes('\n')
		if len(b) > 0 {
			line++
			if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 {
				if fnErr := fn(line, trimmed); fnErr != nil {
					return fnErr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "ndjson: read line %d", line+1)
		}
	}
}

// Read parses every line of r as a JSON object. Lines that are not valid JSON
// objects are logged and skipped; they never abort the read.
func Read(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	err := Each(r, func(line int, raw []byte) error {
		if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
			zap.L().Warn("ndjson: skipping unparseable line",
				zap.Int("line", line),
				zap.Int("bytes", len(raw)),
			)
			return nil
		}
		records = append(records, model.NewRecord(line, raw))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ndjson: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	records, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "ndjson: read %s", path)
	}
	return records, nil
}

// Write encodes each record as one compact JSON line.
func Write(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.Write(pretty.Ugly(rec.Raw())); err != nil {
			return eris.Wrapf(err, "ndjson: write record from line %d", rec.Line)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "ndjson: write newline")
		}
	}
	return eris.Wrap(bw.Flush(), "ndjson: flush")
}

// WriteFile replaces path atomically: records go to a temp file in the same
// directory which is renamed over path once fully synced. path may be the
// file the records were read from.
func WriteFile(path string, records []model.Record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "ndjson: create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := Write(tmp, records); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return eris.Wrap(err, "ndjson: sync temp file")
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return eris.Wrap(err, "ndjson: chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "ndjson: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "ndjson: rename into %s", path)
	}
	return nil
}
