package hindibpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus(t *testing.T, units []string, workers int) (*SymbolTable, *Corpus) {
	t.Helper()
	table, seqs, err := BuildAlphabet(units, AtomicByte, true)
	require.NoError(t, err)
	return table, NewCorpus(seqs, workers)
}

func sym(t *testing.T, table *SymbolTable, unit string) Symbol {
	t.Helper()
	s, ok := table.Lookup(unit)
	require.True(t, ok, "symbol %q not registered", unit)
	return s
}

func TestCountPairs(t *testing.T) {
	table, corpus := testCorpus(t, []string{"aa", "ab", "aa"}, 1)
	a, b := sym(t, table, "a"), sym(t, table, "b")

	freq := corpus.CountPairs()
	assert.Equal(t, PairFrequency{
		{a, a}: 2,
		{a, b}: 1,
	}, freq)
}

func TestCountPairsShortSequencesContributeNothing(t *testing.T) {
	_, corpus := testCorpus(t, []string{"a", "b", "c"}, 2)
	assert.Empty(t, corpus.CountPairs())

	_, empty := testCorpus(t, nil, 4)
	assert.Empty(t, empty.CountPairs())
}

func TestCountPairsIndependentOfWorkerCount(t *testing.T) {
	units := []string{"ababab", "bbaa", "a", "abba", "aaaa"}
	_, serial := testCorpus(t, units, 1)
	_, parallel := testCorpus(t, units, 8)
	assert.Equal(t, serial.CountPairs(), parallel.CountPairs())
}

func TestApplyMergeOverlapPolicy(t *testing.T) {
	// (a,a) -> X over [a a a] must produce [X a]: the replacement consumes
	// both symbols and the new symbol is not re-eligible within the pass.
	table, corpus := testCorpus(t, []string{"aaa"}, 1)
	a := sym(t, table, "a")
	x, err := table.RegisterMerge(Pair{a, a})
	require.NoError(t, err)

	replaced := corpus.ApplyMerge(Pair{a, a}, x)
	assert.Equal(t, 1, replaced)
	assert.Equal(t, []Symbol{x, a}, corpus.Sequence(0))
}

func TestApplyMergeEvenRun(t *testing.T) {
	table, corpus := testCorpus(t, []string{"aaaa"}, 1)
	a := sym(t, table, "a")
	x, err := table.RegisterMerge(Pair{a, a})
	require.NoError(t, err)

	replaced := corpus.ApplyMerge(Pair{a, a}, x)
	assert.Equal(t, 2, replaced)
	assert.Equal(t, []Symbol{x, x}, corpus.Sequence(0))
}

func TestApplyMergeNoOp(t *testing.T) {
	table, corpus := testCorpus(t, []string{"aa", "ab"}, 1)
	b := sym(t, table, "b")
	a := sym(t, table, "a")
	x, err := table.RegisterMerge(Pair{b, a})
	require.NoError(t, err)

	before := [][]Symbol{
		append([]Symbol(nil), corpus.Sequence(0)...),
		append([]Symbol(nil), corpus.Sequence(1)...),
	}
	replaced := corpus.ApplyMerge(Pair{b, a}, x)
	assert.Equal(t, 0, replaced)
	assert.Equal(t, before[0], corpus.Sequence(0))
	assert.Equal(t, before[1], corpus.Sequence(1))
}

func TestApplyMergeAcrossManySequences(t *testing.T) {
	units := make([]string, 100)
	for i := range units {
		units[i] = "ab"
	}
	table, corpus := testCorpus(t, units, 4)
	a, b := sym(t, table, "a"), sym(t, table, "b")
	x, err := table.RegisterMerge(Pair{a, b})
	require.NoError(t, err)

	replaced := corpus.ApplyMerge(Pair{a, b}, x)
	assert.Equal(t, 100, replaced)
	assert.Equal(t, 100, corpus.TotalSymbols())
}

func TestTotalSymbols(t *testing.T) {
	_, corpus := testCorpus(t, []string{"aa", "ab", "aa"}, 1)
	assert.Equal(t, 6, corpus.TotalSymbols())
	assert.Equal(t, 3, corpus.Len())
}
