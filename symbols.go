package hindibpe

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Symbol is an opaque identifier for one vocabulary entry: a special token,
// an atomic unit, or a merged pair. Ids are assigned in creation order and
// never reused.
type Symbol int32

// Pair is an ordered adjacent symbol pair.
type Pair struct {
	Left, Right Symbol
}

// AtomicUnit selects the granularity text is split into before any merges.
// Byte granularity matches the classic UTF-8-level BPE; codepoint
// granularity keeps multi-byte Devanagari characters whole, which changes
// what merges are learnable (a consonant+matra pair is two codepoints but
// up to six bytes).
type AtomicUnit uint8

const (
	AtomicByte AtomicUnit = iota
	AtomicCodepoint
)

func (u AtomicUnit) String() string {
	switch u {
	case AtomicByte:
		return "byte"
	case AtomicCodepoint:
		return "codepoint"
	default:
		return "unknown"
	}
}

// ParseAtomicUnit parses the textual form used by artifacts and the CLI.
func ParseAtomicUnit(s string) (AtomicUnit, error) {
	switch s {
	case "byte":
		return AtomicByte, nil
	case "codepoint":
		return AtomicCodepoint, nil
	default:
		return 0, errors.Errorf("unknown atomic unit: %q", s)
	}
}

// ============================================================================
// Symbol id layout:
//
//   0-5:  special tokens, fixed ids in all configurations
//   6+:   atomic units in first-encounter order, then merged symbols in
//         learned order
// ============================================================================

const (
	PadSymbol Symbol = iota
	EosSymbol
	BosSymbol
	UnkSymbol
	NumSymbol
	EngSymbol

	numSpecials = 6
)

var specialTokens = [numSpecials]string{"<pad>", "<eos>", "<bos>", "<unk>", "<num>", "<eng>"}

// noChild marks entries without a merge pair (specials and atomic units).
const noChild Symbol = -1

// SymbolTable is the append-only mapping from Symbol to its textual
// representation and, for merged symbols, the pair it was formed from.
// Invariant: a merged symbol's representation is exactly the concatenation
// of its children's representations, and both children predate it.
type SymbolTable struct {
	reprs    []string
	children []Pair
	atomic   map[string]Symbol // atomic/special representation → id
	merges   int
}

// NewSymbolTable returns a table pre-populated with the special tokens.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{
		atomic: make(map[string]Symbol),
	}
	for _, tok := range specialTokens {
		id := Symbol(len(t.reprs))
		t.reprs = append(t.reprs, tok)
		t.children = append(t.children, Pair{noChild, noChild})
		t.atomic[tok] = id
	}
	return t
}

// Len reports the number of symbols registered so far.
func (t *SymbolTable) Len() int { return len(t.reprs) }

// Merges reports how many merged symbols the table holds.
func (t *SymbolTable) Merges() int { return t.merges }

// Contains reports whether s is a registered symbol.
func (t *SymbolTable) Contains(s Symbol) bool {
	return s >= 0 && int(s) < len(t.reprs)
}

// Repr returns the textual representation of s.
func (t *SymbolTable) Repr(s Symbol) (string, bool) {
	if !t.Contains(s) {
		return "", false
	}
	return t.reprs[s], true
}

// Children returns the pair a merged symbol was formed from. The second
// return is false for specials and atomic units.
func (t *SymbolTable) Children(s Symbol) (Pair, bool) {
	if !t.Contains(s) || t.children[s].Left == noChild {
		return Pair{}, false
	}
	return t.children[s], true
}

// Lookup resolves an atomic unit (or special-token literal) to its symbol.
func (t *SymbolTable) Lookup(unit string) (Symbol, bool) {
	s, ok := t.atomic[unit]
	return s, ok
}

// addAtomic registers an atomic unit, returning the existing symbol if the
// unit was seen before.
func (t *SymbolTable) addAtomic(unit string) Symbol {
	if s, ok := t.atomic[unit]; ok {
		return s
	}
	id := Symbol(len(t.reprs))
	t.reprs = append(t.reprs, unit)
	t.children = append(t.children, Pair{noChild, noChild})
	t.atomic[unit] = id
	return id
}

// RegisterMerge creates the symbol for a merged pair. Both components must
// already exist, which keeps the table acyclic by construction.
func (t *SymbolTable) RegisterMerge(p Pair) (Symbol, error) {
	if !t.Contains(p.Left) || !t.Contains(p.Right) {
		return 0, errors.Errorf("merge references unregistered symbol pair (%d, %d)", p.Left, p.Right)
	}
	id := Symbol(len(t.reprs))
	t.reprs = append(t.reprs, t.reprs[p.Left]+t.reprs[p.Right])
	t.children = append(t.children, p)
	t.merges++
	return id, nil
}

// atomize splits one corpus unit into atomic-unit strings.
func atomize(unit string, mode AtomicUnit) []string {
	switch mode {
	case AtomicCodepoint:
		out := make([]string, 0, utf8.RuneCountInString(unit))
		for _, r := range unit {
			out = append(out, string(r))
		}
		return out
	default:
		out := make([]string, 0, len(unit))
		for i := 0; i < len(unit); i++ {
			out = append(out, unit[i:i+1])
		}
		return out
	}
}

// validateUTF8 returns the byte offset of the first invalid sequence, or -1.
func validateUTF8(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// BuildAlphabet maps corpus units into the initial symbol table and symbol
// sequences. Each unit equal to a special-token literal collapses to that
// single symbol; every other unit expands to one symbol per atomic unit,
// registered in first-encounter order. With strict set, units that are not
// valid UTF-8 fail with ErrInvalidEncoding and the offending byte offset.
func BuildAlphabet(units []string, mode AtomicUnit, strict bool) (*SymbolTable, [][]Symbol, error) {
	table := NewSymbolTable()
	seqs := make([][]Symbol, 0, len(units))
	for n, unit := range units {
		if s, ok := table.Lookup(unit); ok && s < numSpecials {
			seqs = append(seqs, []Symbol{s})
			continue
		}
		if strict {
			if off := validateUTF8(unit); off >= 0 {
				return nil, nil, errors.Wrapf(ErrInvalidEncoding, "corpus unit %d, byte offset %d", n, off)
			}
		}
		atoms := atomize(unit, mode)
		seq := make([]Symbol, len(atoms))
		for i, a := range atoms {
			seq[i] = table.addAtomic(a)
		}
		seqs = append(seqs, seq)
	}
	return table, seqs, nil
}
