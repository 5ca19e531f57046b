package model

// ExampleSet holds the labeled strings a candidate regex is tested against.
type ExampleSet struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// Result is the verdict for a single candidate regex against one example set.
// Valid is false exactly when the pattern fails to compile; Pass is then false.
type Result struct {
	Valid bool `json:"valid"`
	Pass  bool `json:"pass"`
}

// Selection is the verdict chosen for a record across all of its candidates.
// Regex is nil when no candidate compiled.
type Selection struct {
	Result
	Regex *string `json:"regex"`
}

// Stats aggregates verdicts over an annotated stream.
type Stats struct {
	Total  int `json:"total" yaml:"total"`
	Valid  int `json:"valid" yaml:"valid"`
	Passed int `json:"passed" yaml:"passed"`
	None   int `json:"none" yaml:"none"`
}

// Denominator is the number of records that carried at least one candidate.
func (s Stats) Denominator() int {
	return s.Total - s.None
}

// ValidPercentage returns valid records as a percentage of the denominator.
func (s Stats) ValidPercentage() float64 {
	return percent(s.Valid, s.Denominator())
}

// PassedPercentage returns passing records as a percentage of the denominator.
func (s Stats) PassedPercentage() float64 {
	return percent(s.Passed, s.Denominator())
}

func percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
