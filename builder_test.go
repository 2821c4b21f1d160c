package hindibpe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainUnits(t *testing.T, units []string, opts ...BuilderOption) (*VocabularyBuilder, *Artifact) {
	t.Helper()
	builder, err := NewVocabularyBuilder(opts...)
	require.NoError(t, err)
	artifact, err := builder.TrainUnits(context.Background(), units)
	require.NoError(t, err)
	return builder, artifact
}

// The canonical walkthrough: corpus ["aa" "ab" "aa"] learns (a,a) first,
// then (a,b), then converges with every sequence at length one.
func TestTrainScenario(t *testing.T) {
	builder, artifact := trainUnits(t, []string{"aa", "ab", "aa"})
	assert.Equal(t, StateConverged, builder.State())

	table := artifact.Table()
	a, ok := table.Lookup("a")
	require.True(t, ok)
	b, ok := table.Lookup("b")
	require.True(t, ok)

	merges := artifact.Merges()
	require.Len(t, merges, 2)
	assert.Equal(t, Pair{a, a}, Pair{merges[0].Left, merges[0].Right})
	assert.Equal(t, Pair{a, b}, Pair{merges[1].Left, merges[1].Right})

	x := merges[0].Result
	tok, err := NewTokenizer(artifact)
	require.NoError(t, err)

	encoded, err := tok.Encode("aa")
	require.NoError(t, err)
	assert.Equal(t, []Symbol{x}, encoded)

	decoded, err := tok.Decode([]Symbol{x})
	require.NoError(t, err)
	assert.Equal(t, "aa", decoded)
}

func TestTrainMonotonicVocabularyGrowth(t *testing.T) {
	var sizes []int
	builder, err := NewVocabularyBuilder(WithProgress(func(ev MergeEvent) {
		sizes = append(sizes, ev.VocabSize)
	}))
	require.NoError(t, err)

	_, err = builder.TrainUnits(context.Background(), []string{"नमस्ते", "नमकीन", "नमस्ते"})
	require.NoError(t, err)

	require.NotEmpty(t, sizes)
	for i := 1; i < len(sizes); i++ {
		assert.Equal(t, sizes[i-1]+1, sizes[i], "vocabulary must grow by exactly one per iteration")
	}
}

func TestTrainDeterminism(t *testing.T) {
	units := []string{"नमस्ते", "दुनिया", "नमस्ते", "नमकीन", "दुनिया", "नमस्ते"}

	_, first := trainUnits(t, units)
	_, second := trainUnits(t, units)
	assert.Equal(t, first.Merges(), second.Merges())

	// Worker count must not change the outcome either.
	_, sharded := trainUnits(t, units, WithWorkers(8))
	assert.Equal(t, first.Merges(), sharded.Merges())
}

func TestTrainTargetReached(t *testing.T) {
	builder, artifact := trainUnits(t, []string{"aa", "ab", "aa"}, WithMaxMerges(1))
	assert.Equal(t, StateTargetReached, builder.State())
	assert.Len(t, artifact.Merges(), 1)
}

func TestTrainMinPairFrequency(t *testing.T) {
	// (a,a) occurs twice, (a,b) once: with a floor of 2 only one merge is
	// learnable and training converges there.
	builder, artifact := trainUnits(t, []string{"aa", "ab", "aa"}, WithMinPairFrequency(2))
	assert.Equal(t, StateConverged, builder.State())
	assert.Len(t, artifact.Merges(), 1)
}

func TestTrainConvergenceBound(t *testing.T) {
	units := []string{"abcabc", "bca", "cab", "abc", "aa"}
	totalAtoms := 0
	for _, u := range units {
		totalAtoms += len(u)
	}

	builder, artifact := trainUnits(t, units)
	assert.Equal(t, StateConverged, builder.State())
	// Every merge removes at least one symbol occurrence, and at least one
	// symbol per sequence always remains.
	assert.LessOrEqual(t, len(artifact.Merges()), totalAtoms-len(units))
}

func TestTrainEmptyCorpus(t *testing.T) {
	builder, artifact := trainUnits(t, nil)
	assert.Equal(t, StateConverged, builder.State())
	assert.Empty(t, artifact.Merges())

	// Single-symbol sequences offer no pairs at all.
	builder2, artifact2 := trainUnits(t, []string{"a", "b", "a"})
	assert.Equal(t, StateConverged, builder2.State())
	assert.Empty(t, artifact2.Merges())
}

func TestTrainStats(t *testing.T) {
	builder, _ := trainUnits(t, []string{"aa", "ab", "aa"})
	stats := builder.Stats()
	assert.Equal(t, 6, stats.InitialSymbols)
	assert.Equal(t, 3, stats.FinalSymbols)
	assert.Equal(t, numSpecials+2, stats.InitialVocab)
	assert.Equal(t, numSpecials+4, stats.FinalVocab)
	assert.Equal(t, 2, stats.Merges)
	assert.InDelta(t, 2.0, stats.CompressionRatio, 1e-9)
}

func TestBuilderSingleUse(t *testing.T) {
	builder, _ := trainUnits(t, []string{"aa"})
	_, err := builder.TrainUnits(context.Background(), []string{"bb"})
	require.Error(t, err)
}

func TestTrainRespectsContext(t *testing.T) {
	builder, err := NewVocabularyBuilder()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = builder.TrainUnits(ctx, []string{"aa", "ab"})
	require.Error(t, err)

	// A cancelled run does not consume the builder.
	assert.Equal(t, StateIdle, builder.State())
	artifact, err := builder.TrainUnits(context.Background(), []string{"aa", "ab"})
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.Merges())
}

func TestTrainWithCleaner(t *testing.T) {
	builder, err := NewVocabularyBuilder(WithCleaner())
	require.NoError(t, err)
	artifact, err := builder.Train(context.Background(), "नमस्ते 123 नमस्ते hello नमस्ते")
	require.NoError(t, err)
	assert.True(t, artifact.Clean)

	tok, err := NewTokenizer(artifact)
	require.NoError(t, err)

	// The tokenizer mirrors the cleaning pipeline: digits collapse to the
	// <num> special before encoding.
	encoded, err := tok.Encode("456")
	require.NoError(t, err)
	assert.Equal(t, []Symbol{NumSymbol}, encoded)
}

func TestBuilderOptionValidation(t *testing.T) {
	_, err := NewVocabularyBuilder(WithMaxMerges(-1))
	require.Error(t, err)
	_, err = NewVocabularyBuilder(WithMinPairFrequency(0))
	require.Error(t, err)
	_, err = NewVocabularyBuilder(WithWorkers(0))
	require.Error(t, err)
	_, err = NewVocabularyBuilder(WithAtomicUnit(AtomicUnit(9)))
	require.Error(t, err)
}
