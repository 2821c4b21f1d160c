package hindibpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicValues(t *testing.T) {
	assert.Equal(t, []uint32{97, 98}, AtomicValues("ab", AtomicByte))
	// "न" is U+0928, three bytes in UTF-8.
	assert.Equal(t, []uint32{0xe0, 0xa4, 0xa8}, AtomicValues("न", AtomicByte))
	assert.Equal(t, []uint32{0x928}, AtomicValues("न", AtomicCodepoint))
	assert.Empty(t, AtomicValues("", AtomicByte))
}

func TestDescribeSymbol(t *testing.T) {
	table := NewSymbolTable()
	a := table.addAtomic("a")
	b := table.addAtomic("b")
	merged, err := table.RegisterMerge(Pair{a, b})
	require.NoError(t, err)

	desc := DescribeSymbol(table, merged, AtomicByte)
	assert.Contains(t, desc, `"ab"`)
	assert.Contains(t, desc, "97 98")

	assert.Contains(t, DescribeSymbol(table, Symbol(999), AtomicByte), "undefined")
}

func TestDescribeCorpus(t *testing.T) {
	report := DescribeCorpus("एक दो तीन", 2)
	assert.Equal(t, 9, report.Characters)
	assert.Equal(t, 3, report.Words)
	assert.Equal(t, "एक", report.Preview)

	empty := DescribeCorpus("", 10)
	assert.Zero(t, empty.Characters)
	assert.Zero(t, empty.Words)
}
