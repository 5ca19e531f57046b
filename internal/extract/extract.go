// Package extract pulls tagged regex answers out of raw model responses.
package extract

import (
	"context"

	"github.com/dlclark/regexp2"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/ndjson"
)

var (
	// Fenced python blocks often quote the tags while testing the answer.
	pythonBlock = regexp2.MustCompile("```python.*?```", regexp2.Singleline)
	closedTag   = regexp2.MustCompile(`##<Regex>##(.*?)##</Regex>##`, regexp2.Singleline)
	openTag     = regexp2.MustCompile(`(?:##<REGEX>##)(.*?)(?=##<REGEX>##)`, regexp2.Singleline)
)

// Regexes returns the regex answers tagged in text. Closed
// ##<Regex>##...##</Regex>## tags take precedence; without any, text between
// consecutive ##<REGEX>## markers is used. Python code blocks are ignored and
// an answer repeated in the text is dropped entirely.
func Regexes(text string) ([]string, error) {
	cleaned, err := pythonBlock.Replace(text, "", -1, -1)
	if err != nil {
		return nil, eris.Wrap(err, "extract: strip code blocks")
	}

	found, err := captures(closedTag, cleaned)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if found, err = captures(openTag, cleaned); err != nil {
			return nil, err
		}
	}
	return unique(found), nil
}

func captures(re *regexp2.Regexp, text string) ([]string, error) {
	var out []string
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, m.GroupByNumber(1).String())
		m, err = re.FindNextMatch(m)
	}
	return out, eris.Wrap(err, "extract: match tags")
}

// unique keeps the strings that occur exactly once, in order.
func unique(in []string) []string {
	counts := make(map[string]int, len(in))
	for _, s := range in {
		counts[s]++
	}
	var out []string
	for _, s := range in {
		if counts[s] == 1 {
			out = append(out, s)
		}
	}
	return out
}

// Summary counts the outcome of File.
type Summary struct {
	Records  int `json:"records"`
	None     int `json:"none"`
	Multiple int `json:"multiple"`
	Skipped  int `json:"skipped"`
}

// File rewrites the GPT-response of every record in in to its extracted
// answer: a string for one, an array for several, null for none. Records
// without a string response are copied as is.
func File(ctx context.Context, in, out string) (*Summary, error) {
	records, err := ndjson.ReadFile(in)
	if err != nil {
		return nil, eris.Wrap(err, "extract: read responses")
	}

	sum := &Summary{Records: len(records)}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &records[i]
		res := rec.Get(model.FieldResponse)
		if res.Type != gjson.String {
			sum.Skipped++
			continue
		}

		found, err := Regexes(res.String())
		if err != nil {
			return nil, eris.Wrapf(err, "extract: line %d", rec.Line)
		}
		switch len(found) {
		case 0:
			sum.None++
			err = rec.SetRaw(model.FieldResponse, []byte("null"))
		case 1:
			err = rec.Set(model.FieldResponse, found[0])
		default:
			sum.Multiple++
			zap.L().Warn("extract: multiple regexes in response",
				zap.Int("line", rec.Line),
				zap.String("file_id", rec.Get(model.FieldFileID).Raw),
				zap.Strings("regexes", found),
			)
			err = rec.Set(model.FieldResponse, found)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := ndjson.WriteFile(out, records); err != nil {
		return nil, eris.Wrap(err, "extract: write responses")
	}
	zap.L().Info("extract: responses cleaned",
		zap.String("output", out),
		zap.Int("records", sum.Records),
		zap.Int("none", sum.None),
		zap.Int("multiple", sum.Multiple),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}
