// Package report aggregates verdicts from an annotated NDJSON stream.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/ndjson"
)

// Output formats accepted by Encode.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Compute tallies the annotated stream at path.
func Compute(path string) (model.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Stats{}, eris.Wrapf(err, "report: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	s, err := Tally(f)
	if err != nil {
		return model.Stats{}, eris.Wrapf(err, "report: tally %s", path)
	}
	return s, nil
}

// Tally counts records, valid and passing verdicts, and records whose
// GPT-response is null or missing. Unlike the input reader it does not skip
// anything: the first line that is not valid JSON fails the whole tally.
func Tally(r io.Reader) (model.Stats, error) {
	var s model.Stats
	err := ndjson.Each(r, func(line int, raw []byte) error {
		if !gjson.ValidBytes(raw) {
			return eris.Errorf("report: line %d is not valid JSON", line)
		}
		s.Total++
		if gjson.GetBytes(raw, model.FieldValid).Type == gjson.True {
			s.Valid++
		}
		// The "File not found" sentinel is a string and never passes.
		if gjson.GetBytes(raw, model.FieldPass).Type == gjson.True {
			s.Passed++
		}
		if gjson.GetBytes(raw, model.FieldResponse).Type == gjson.Null {
			s.None++
		}
		return nil
	})
	return s, err
}

// Render prints the two-line summary.
func Render(w io.Writer, s model.Stats) error {
	_, err := fmt.Fprintf(w, "Total: %d, Valid: %d, Passed: %d, None: %d\nValid percentage: %.2f%%, Passed percentage: %.2f%%\n",
		s.Total, s.Valid, s.Passed, s.None,
		s.ValidPercentage(), s.PassedPercentage(),
	)
	return eris.Wrap(err, "report: render")
}

// summary is the machine-readable form of Stats.
type summary struct {
	model.Stats      `yaml:",inline"`
	ValidPercentage  float64 `json:"valid_percentage" yaml:"valid_percentage"`
	PassedPercentage float64 `json:"passed_percentage" yaml:"passed_percentage"`
}

// Encode writes s in the given format: text (Render), json or yaml.
func Encode(w io.Writer, s model.Stats, format string) error {
	sum := summary{
		Stats:            s,
		ValidPercentage:  round2(s.ValidPercentage()),
		PassedPercentage: round2(s.PassedPercentage()),
	}
	switch format {
	case FormatText, "":
		return Render(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(sum), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(sum); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteTextfile writes s as Prometheus gauges for a node_exporter textfile
// collector.
func WriteTextfile(path string, s model.Stats) error {
	reg := prometheus.NewRegistry()
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "regexval",
		Name:      "records",
		Help:      "Records in the last validated stream by verdict.",
	}, []string{"verdict"})
	ratio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "regexval",
		Name:      "ratio",
		Help:      "Valid and passed records as a fraction of records with a candidate.",
	}, []string{"verdict"})
	reg.MustRegister(records, ratio)

	records.WithLabelValues("total").Set(float64(s.Total))
	records.WithLabelValues("valid").Set(float64(s.Valid))
	records.WithLabelValues("passed").Set(float64(s.Passed))
	records.WithLabelValues("none").Set(float64(s.None))
	ratio.WithLabelValues("valid").Set(s.ValidPercentage() / 100)
	ratio.WithLabelValues("passed").Set(s.PassedPercentage() / 100)

	return eris.Wrapf(prometheus.WriteToTextfile(path, reg), "report: write textfile %s", path)
}
