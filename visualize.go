package hindibpe

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Display helpers for CLIs and notebooks. Everything here is a pure
// function over the frozen structures; no tokenizer logic lives in this
// file.

// AtomicValues returns the numeric atomic units of text at the given
// granularity: UTF-8 byte values in byte mode, codepoints otherwise.
func AtomicValues(text string, unit AtomicUnit) []uint32 {
	switch unit {
	case AtomicCodepoint:
		out := make([]uint32, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, uint32(r))
		}
		return out
	default:
		out := make([]uint32, len(text))
		for i := 0; i < len(text); i++ {
			out[i] = uint32(text[i])
		}
		return out
	}
}

// DescribeSymbol renders one symbol as its id, representation, and atomic
// expansion, e.g. `48 "ना" [224 164 168 224 164 190]`.
func DescribeSymbol(table *SymbolTable, s Symbol, unit AtomicUnit) string {
	repr, ok := table.Repr(s)
	if !ok {
		return fmt.Sprintf("%d <undefined>", s)
	}
	values := AtomicValues(repr, unit)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d %q [%s]", s, repr, strings.Join(parts, " "))
}

// CorpusReport summarizes a raw or cleaned corpus for dataset statistics.
type CorpusReport struct {
	Characters int
	Words      int
	Preview    string
}

// DescribeCorpus counts codepoints and whitespace-delimited words and keeps
// a preview of at most previewRunes codepoints.
func DescribeCorpus(text string, previewRunes int) CorpusReport {
	report := CorpusReport{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.Fields(text)),
	}
	if previewRunes > 0 {
		runes := []rune(text)
		if len(runes) > previewRunes {
			runes = runes[:previewRunes]
		}
		report.Preview = string(runes)
	}
	return report
}
