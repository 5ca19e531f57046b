package model

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Field names shared by the input stream, the annotated output and the
// solutions database.
const (
	FieldFileID         = "file_id"
	FieldResponse       = "GPT-response"
	FieldValid          = "Valid_Regex"
	FieldPass           = "pass"
	FieldID             = "id"
	FieldRegex          = "regex"
	FieldPositiveInputs = "positive_inputs"
	FieldNegativeInputs = "negative_inputs"
	FieldFilePath       = "file_path"
	FieldRFixerSolution = "RFixer-Solution"
)

// FileNotFound is written to the pass field when no example file exists for
// a record's file_id.
const FileNotFound = "File not found"

// Record is one JSON object from an NDJSON stream. The raw bytes are kept so
// fields the tool does not own pass through untouched and in their original
// order; annotations are appended with sjson.
type Record struct {
	Line int
	raw  []byte
}

// NewRecord wraps a JSON object read from the given 1-based line.
func NewRecord(line int, raw []byte) Record {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return Record{Line: line, raw: buf}
}

// Raw returns the current JSON encoding of the record.
func (r Record) Raw() []byte {
	return r.raw
}

// Get returns the value at path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// FileID returns the integral file_id of the record. Strings, fractions and
// missing values report ok=false.
func (r Record) FileID() (int64, bool) {
	return integerField(r.Get(FieldFileID))
}

// ID returns the integral id of a solutions record.
func (r Record) ID() (int64, bool) {
	return integerField(r.Get(FieldID))
}

// Candidates returns the candidate regexes held in GPT-response. A single
// string yields one candidate; an array yields one entry per element, with
// nil for elements that are not strings. Anything else yields no candidates.
func (r Record) Candidates() []*string {
	res := r.Get(FieldResponse)
	switch {
	case res.Type == gjson.String:
		s := res.String()
		return []*string{&s}
	case res.IsArray():
		items := res.Array()
		out := make([]*string, len(items))
		for i, item := range items {
			if item.Type != gjson.String {
				continue
			}
			s := item.String()
			out[i] = &s
		}
		return out
	default:
		return nil
	}
}

// Set writes v at path, appending the key when it does not exist yet. A nil
// v is written as JSON null.
func (r *Record) Set(path string, v any) error {
	out, err := sjson.SetBytes(r.raw, path, v)
	if err != nil {
		return eris.Wrapf(err, "model: set %s on line %d", path, r.Line)
	}
	r.raw = out
	return nil
}

// SetRaw writes an already-encoded JSON value at path.
func (r *Record) SetRaw(path string, raw []byte) error {
	out, err := sjson.SetRawBytes(r.raw, path, raw)
	if err != nil {
		return eris.Wrapf(err, "model: set raw %s on line %d", path, r.Line)
	}
	r.raw = out
	return nil
}

// Annotate records a selection verdict: Valid_Regex, pass and the normalized
// GPT-response (the chosen regex, or null).
func (r *Record) Annotate(sel Selection) error {
	if err := r.Set(FieldValid, sel.Valid); err != nil {
		return err
	}
	if err := r.Set(FieldPass, sel.Pass); err != nil {
		return err
	}
	if sel.Regex == nil {
		return r.SetRaw(FieldResponse, []byte("null"))
	}
	return r.Set(FieldResponse, *sel.Regex)
}

// MarkFileNotFound sets the pass sentinel and leaves every other field as read.
func (r *Record) MarkFileNotFound() error {
	return r.Set(FieldPass, FileNotFound)
}

func integerField(res gjson.Result) (int64, bool) {
	if res.Type != gjson.Number {
		return 0, false
	}
	if res.Num != math.Trunc(res.Num) || math.IsInf(res.Num, 0) {
		return 0, false
	}
	return res.Int(), true
}
