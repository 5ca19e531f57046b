package regex

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/model"
)

// Evaluate compiles pattern and tests it against set. A pattern that fails to
// compile is invalid and never passes. A valid pattern passes when it finds a
// match inside every positive example and inside no negative example.
func Evaluate(engine Engine, pattern string, set model.ExampleSet) model.Result {
	m, err := engine.Compile(pattern)
	if err != nil {
		return model.Result{}
	}
	return model.Result{Valid: true, Pass: separates(m, pattern, set)}
}

func separates(m Matcher, pattern string, set model.ExampleSet) bool {
	for _, s := range set.Positive {
		if matched, decided := try(m, pattern, s); !decided || !matched {
			return false
		}
	}
	for _, s := range set.Negative {
		if matched, decided := try(m, pattern, s); !decided || matched {
			return false
		}
	}
	return true
}

// try runs one match. An undecided match (timeout) fails the candidate
// whichever side the example is on.
func try(m Matcher, pattern, s string) (matched, decided bool) {
	ok, err := m.MatchString(s)
	if err != nil {
		zap.L().Debug("regex: match undecided", zap.String("pattern", pattern), zap.Error(err))
		return false, false
	}
	return ok, true
}

// Candidate is one evaluated entry of a record's candidate list.
type Candidate struct {
	Regex  string
	Index  int
	Result model.Result
}

// Better reports whether a ranks ahead of b: passing before failing, then
// fewer characters, then earlier in the list. Both must be valid.
func Better(a, b Candidate) bool {
	if a.Result.Pass != b.Result.Pass {
		return a.Result.Pass
	}
	la, lb := utf8.RuneCountInString(a.Regex), utf8.RuneCountInString(b.Regex)
	if la != lb {
		return la < lb
	}
	return a.Index < b.Index
}

// Select evaluates every non-nil candidate independently and keeps the best
// valid one according to Better. With no valid candidate the selection is
// invalid, failing and has no regex.
func Select(candidates []*string, evaluate func(pattern string) model.Result) model.Selection {
	var best *Candidate
	for i, p := range candidates {
		if p == nil {
			continue
		}
		c := Candidate{Regex: *p, Index: i, Result: evaluate(*p)}
		if !c.Result.Valid {
			continue
		}
		if best == nil || Better(c, *best) {
			best = &c
		}
	}

	if best == nil {
		return model.Selection{}
	}
	regex := best.Regex
	return model.Selection{Result: best.Result, Regex: &regex}
}

// SelectFor is Select with Evaluate bound to engine and set.
func SelectFor(engine Engine, candidates []*string, set model.ExampleSet) model.Selection {
	return Select(candidates, func(p string) model.Result {
		return Evaluate(engine, p, set)
	})
}
