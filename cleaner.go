package hindibpe

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Marker sentinels used while cleaning. Digit and Latin runs are first
// rewritten to these private-use codepoints so the punctuation and charset
// rules further down cannot damage the markers; the sentinels become the
// <num>/<eng> literals only in the final step.
const (
	numMark = "\uE000"
	engMark = "\uE001"
)

// Cleaning rules for raw Hindi corpora, applied in order:
//
//   1. Drop any sentinel codepoints already present in the input.
//   2. Digit runs (Devanagari ० -९ and ASCII) become the num sentinel.
//   3. Latin-letter runs become the eng sentinel.
//   4. ASCII punctuation (angle brackets included) and the danda/double
//      danda are stripped.
//   5. Everything outside the Devanagari block, whitespace, and the
//      sentinels is removed.
//   6. Whitespace collapses to single spaces; a run of identical sentinels
//      collapses to one.
//   7. Sentinels become the <num>/<eng> marker literals.
//
// The same cleaner must run at encode time when it ran at training time,
// otherwise encode sees a distribution the vocabulary was never built for.
var cleanerRules = []struct {
	pattern     string
	replacement string
}{
	{"[" + numMark + engMark + "]", ""},
	{`[०-९0-9]+`, " " + numMark + " "},
	{`[A-Za-z]+`, " " + engMark + " "},
	{`[!@#$%^&*(),.?":{}|<>]`, " "},
	{"[।॥]", " "},
	{"[^ऀ-ॿ\\s" + numMark + engMark + "]", ""},
	{`\s+`, " "},
	{numMark + `(?:\s*` + numMark + `)+`, numMark},
	{engMark + `(?:\s*` + engMark + `)+`, engMark},
	{numMark, "<num>"},
	{engMark, "<eng>"},
}

// Cleaner normalizes raw Hindi text into the cleaned form the trainer
// consumes. Safe for concurrent use after construction.
type Cleaner struct {
	rules []*regexp2.Regexp
	repl  []string
}

// NewCleaner compiles the cleaning pipeline.
func NewCleaner() (*Cleaner, error) {
	c := &Cleaner{}
	for _, r := range cleanerRules {
		re, err := regexp2.Compile(r.pattern, regexp2.None)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile cleaner pattern %q", r.pattern)
		}
		c.rules = append(c.rules, re)
		c.repl = append(c.repl, r.replacement)
	}
	return c, nil
}

// Clean applies the full pipeline and trims surrounding space.
func (c *Cleaner) Clean(text string) (string, error) {
	text = norm.NFC.String(text)
	for i, re := range c.rules {
		out, err := re.Replace(text, c.repl[i], -1, -1)
		if err != nil {
			return "", errors.Wrapf(err, "cleaner rule %d failed", i)
		}
		text = out
	}
	return strings.TrimSpace(text), nil
}

// SplitUnits breaks cleaned text into whitespace-delimited corpus units.
func SplitUnits(text string) []string {
	return strings.Fields(text)
}
