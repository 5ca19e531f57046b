package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regex-validate/internal/model"
)

// VerdictSheet is the name of the sheet written by WriteVerdicts.
const VerdictSheet = "verdicts"

var verdictHeader = []string{"line", model.FieldFileID, model.FieldResponse, model.FieldValid, model.FieldPass}

// WriteVerdicts writes one row per validated record: its input line,
// file_id, chosen regex, validity and pass verdict. Missing fields are left
// blank.
func WriteVerdicts(path string, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(VerdictSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range verdictHeader {
		header.AddCell().SetString(h)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetInt(rec.Line)
		for _, field := range verdictHeader[1:] {
			row.AddCell().SetString(rec.Get(field).String())
		}
	}

	return eris.Wrap(f.Save(path), "xlsx: save verdicts")
}
