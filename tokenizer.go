package hindibpe

import (
	"strings"

	"github.com/pkg/errors"
)

// EncodeOptions control a single Encode call.
type EncodeOptions struct {
	Strict      bool
	AddSpecials bool
}

// EncodeOption mutates EncodeOptions.
type EncodeOption func(eo *EncodeOptions) error

// WithStrict fails encoding with ErrUnknownSymbol on atomic units unseen at
// training time, instead of mapping them to <unk>.
func WithStrict() EncodeOption {
	return func(eo *EncodeOptions) error {
		eo.Strict = true
		return nil
	}
}

// WithSpecials wraps the encoded sequence in <bos> ... <eos>.
func WithSpecials() EncodeOption {
	return func(eo *EncodeOptions) error {
		eo.AddSpecials = true
		return nil
	}
}

// Tokenizer encodes and decodes text with a frozen, validated vocabulary
// artifact. Construction validates the artifact; after that the tokenizer
// is immutable and safe for concurrent use.
type Tokenizer struct {
	unit    AtomicUnit
	table   *SymbolTable
	merges  []Merge
	cleaner *Cleaner
}

// NewTokenizer builds a tokenizer from a training artifact. The artifact's
// internal consistency is a hard precondition: any dangling or inconsistent
// merge reference fails with ErrArtifactCorrupt.
func NewTokenizer(a *Artifact) (*Tokenizer, error) {
	if a == nil {
		return nil, errors.New("artifact cannot be nil")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	t := &Tokenizer{
		unit:   a.Unit,
		table:  a.table,
		merges: a.merges,
	}
	if a.Clean {
		cleaner, err := NewCleaner()
		if err != nil {
			return nil, err
		}
		t.cleaner = cleaner
	}
	return t, nil
}

// VocabSize reports the total number of symbols, merges included.
func (t *Tokenizer) VocabSize() int { return t.table.Len() }

// NumMerges reports the number of learned merge rules.
func (t *Tokenizer) NumMerges() int { return len(t.merges) }

// Table exposes the read-only symbol table backing this tokenizer.
func (t *Tokenizer) Table() *SymbolTable { return t.table }

// Encode converts text into a symbol sequence: atomize with the
// training-time granularity, then apply every merge in learned order, each
// pass replacing non-overlapping occurrences left to right. Order already
// encodes priority; no frequency data is consulted here.
//
// Special-token literals (<pad>, <eos>, ...) embedded in the text map to
// their fixed symbols. If the artifact was trained with the cleaner, the
// same cleaning pipeline runs first. Encoding is atomic: on error no
// partial sequence is returned.
func (t *Tokenizer) Encode(text string, opts ...EncodeOption) ([]Symbol, error) {
	var options EncodeOptions
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, errors.Wrap(err, "failed to apply encode option")
		}
	}

	if t.cleaner != nil {
		cleaned, err := t.cleaner.Clean(text)
		if err != nil {
			return nil, err
		}
		text = cleaned
	}
	if options.Strict {
		if off := validateUTF8(text); off >= 0 {
			return nil, errors.Wrapf(ErrInvalidEncoding, "byte offset %d", off)
		}
	}

	symbols, err := t.atomizeText(text, options.Strict)
	if err != nil {
		return nil, err
	}
	for _, m := range t.merges {
		symbols, _ = mergeSequence(symbols, Pair{m.Left, m.Right}, m.Result)
	}

	if options.AddSpecials {
		wrapped := make([]Symbol, 0, len(symbols)+2)
		wrapped = append(wrapped, BosSymbol)
		wrapped = append(wrapped, symbols...)
		wrapped = append(wrapped, EosSymbol)
		symbols = wrapped
	}
	return symbols, nil
}

// atomizeText maps text to base symbols, keeping embedded special-token
// literals whole.
func (t *Tokenizer) atomizeText(text string, strict bool) ([]Symbol, error) {
	var out []Symbol
	base := 0
	for len(text) > 0 {
		idx, tok := nextSpecialLiteral(text)
		if idx < 0 {
			if err := t.atomizeSegment(text, base, strict, &out); err != nil {
				return nil, err
			}
			break
		}
		if err := t.atomizeSegment(text[:idx], base, strict, &out); err != nil {
			return nil, err
		}
		out = append(out, tok)
		consumed := idx + len(t.table.reprs[tok])
		base += consumed
		text = text[consumed:]
	}
	return out, nil
}

// atomizeSegment appends the symbols for one literal-free text segment.
func (t *Tokenizer) atomizeSegment(segment string, base int, strict bool, out *[]Symbol) error {
	for _, atom := range atomize(segment, t.unit) {
		s, ok := t.table.Lookup(atom)
		if !ok {
			if strict {
				return errors.Wrapf(ErrUnknownSymbol, "atomic unit %q at byte offset %d", atom, base)
			}
			s = UnkSymbol
		}
		*out = append(*out, s)
		base += len(atom)
	}
	return nil
}

// nextSpecialLiteral finds the earliest special-token literal in text.
// Returns (-1, 0) when none occurs.
func nextSpecialLiteral(text string) (int, Symbol) {
	best := -1
	var bestSym Symbol
	for i, lit := range specialTokens {
		if idx := strings.Index(text, lit); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestSym = Symbol(i)
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestSym
}

// Decode concatenates each symbol's representation. Lossless for any
// sequence produced by Encode: a merged symbol's representation is exactly
// its children's concatenation.
func (t *Tokenizer) Decode(symbols []Symbol) (string, error) {
	var sb strings.Builder
	for i, s := range symbols {
		repr, ok := t.table.Repr(s)
		if !ok {
			return "", errors.Wrapf(ErrUnknownSymbol, "symbol %d at position %d", s, i)
		}
		sb.WriteString(repr)
	}
	return sb.String(), nil
}

// Tokens returns the textual form of each encoded symbol, mainly for
// inspection and debugging.
func (t *Tokenizer) Tokens(text string, opts ...EncodeOption) ([]string, error) {
	symbols, err := t.Encode(text, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i], _ = t.table.Repr(s)
	}
	return out, nil
}
