// Package regex compiles candidate patterns, tests them against example sets
// and picks the best candidate for a record.
package regex

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
	"github.com/rotisserie/eris"
)

// Dialect names a regex syntax and matching semantics.
type Dialect string

const (
	// DialectECMAScript follows JavaScript RegExp semantics without the u flag
	// (lookarounds, backreferences, named groups). The .NET extensions regexp2
	// would otherwise accept are closed off: inline options, comment, atomic,
	// conditional and balancing groups fail to compile, and \A \Z \z \G \p \P
	// are identity escapes.
	DialectECMAScript Dialect = "ecmascript"
	// DialectRE2 is Go's linear-time RE2 syntax.
	DialectRE2 Dialect = "re2"
)

// Matcher reports whether s contains a match. An error means the match could
// not be decided, e.g. it timed out.
type Matcher interface {
	MatchString(s string) (bool, error)
}

// Engine compiles patterns for one dialect. Implementations are safe for
// concurrent use.
type Engine interface {
	Compile(pattern string) (Matcher, error)
	Dialect() Dialect
}

// NewEngine returns an engine for d. timeout bounds a single match in the
// ECMAScript dialect; zero disables it. RE2 runs in linear time and ignores it.
func NewEngine(d Dialect, timeout time.Duration) (Engine, error) {
	switch d {
	case DialectECMAScript, "":
		return ecmaEngine{timeout: timeout}, nil
	case DialectRE2:
		return re2Engine{}, nil
	default:
		return nil, eris.Errorf("regex: unknown dialect %q", d)
	}
}

type ecmaEngine struct {
	timeout time.Duration
}

func (e ecmaEngine) Dialect() Dialect { return DialectECMAScript }

func (e ecmaEngine) Compile(pattern string) (Matcher, error) {
	src, err := ecmaSource(pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(src, regexp2.ECMAScript)
	if err != nil {
		return nil, eris.Wrap(err, "regex: compile")
	}
	if e.timeout > 0 {
		re.MatchTimeout = e.timeout
	}
	return re, nil
}

// identityEscapes are letters that JavaScript reads as themselves after a
// backslash but regexp2 reads as anchors or Unicode classes.
const identityEscapes = "AZzGpP"

// ecmaSource rewrites pattern into the regexp2 source that matches like
// JavaScript RegExp, or rejects group syntax JavaScript does not have.
func ecmaSource(pattern string) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern))
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			next := pattern[i]
			if strings.IndexByte(identityEscapes, next) < 0 {
				b.WriteByte(c)
			}
			b.WriteByte(next)
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(' && strings.HasPrefix(pattern[i+1:], "?"):
			if !ecmaGroup(pattern[i+2:]) {
				return "", eris.Errorf("regex: compile: unsupported group syntax at offset %d", i)
			}
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// ecmaGroup reports whether rest, the text after "(?", opens a group
// JavaScript accepts: non-capturing, lookaround or named.
func ecmaGroup(rest string) bool {
	if rest == "" {
		return false
	}
	switch rest[0] {
	case ':', '=', '!':
		return true
	case '<':
		rest = rest[1:]
		if rest != "" && (rest[0] == '=' || rest[0] == '!') {
			return true
		}
		end := strings.IndexByte(rest, '>')
		if end <= 0 {
			return false
		}
		for j, r := range rest[:end] {
			if r == '_' || r == '$' || unicode.IsLetter(r) || (j > 0 && unicode.IsDigit(r)) {
				continue
			}
			return false
		}
		return true
	}
	return false
}

type re2Engine struct{}

func (re2Engine) Dialect() Dialect { return DialectRE2 }

func (re2Engine) Compile(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrap(err, "regex: compile")
	}
	return re2Matcher{re}, nil
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) MatchString(s string) (bool, error) {
	return m.re.MatchString(s), nil
}
