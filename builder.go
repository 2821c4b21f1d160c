package hindibpe

import (
	"context"

	"github.com/pkg/errors"
)

// BuilderState tracks the training lifecycle. Converged and TargetReached
// are terminal; a builder trains at most once.
type BuilderState uint8

const (
	StateIdle BuilderState = iota
	StateTraining
	StateConverged
	StateTargetReached
)

func (s BuilderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTraining:
		return "training"
	case StateConverged:
		return "converged"
	case StateTargetReached:
		return "target-reached"
	default:
		return "unknown"
	}
}

// Merge is one learned rule: the adjacent pair and the symbol it produces.
// The merge table's order is semantically significant; it is the
// application priority at encode time.
type Merge struct {
	Left, Right, Result Symbol
}

// MergeEvent describes one completed training iteration for progress
// reporting.
type MergeEvent struct {
	Iteration    int
	Pair         Pair
	Result       Symbol
	Frequency    int
	Replacements int
	TotalSymbols int
	VocabSize    int
}

// ProgressFunc receives one event per learned merge.
type ProgressFunc func(MergeEvent)

// TrainStats summarizes a finished training run.
type TrainStats struct {
	InitialSymbols   int
	FinalSymbols     int
	InitialVocab     int
	FinalVocab       int
	Merges           int
	CompressionRatio float64
}

// BuilderOption configures a VocabularyBuilder.
type BuilderOption func(b *VocabularyBuilder) error

// WithMaxMerges bounds the number of learned merges. Zero (the default)
// means unbounded; training then ends only at convergence.
func WithMaxMerges(n int) BuilderOption {
	return func(b *VocabularyBuilder) error {
		if n < 0 {
			return errors.Errorf("max merges must be >= 0, got %d", n)
		}
		b.maxMerges = n
		return nil
	}
}

// WithMinPairFrequency drops merge candidates seen fewer than n times.
func WithMinPairFrequency(n int) BuilderOption {
	return func(b *VocabularyBuilder) error {
		if n < 1 {
			return errors.Errorf("min pair frequency must be >= 1, got %d", n)
		}
		b.minFreq = n
		return nil
	}
}

// WithAtomicUnit selects byte or codepoint granularity.
func WithAtomicUnit(u AtomicUnit) BuilderOption {
	return func(b *VocabularyBuilder) error {
		if u != AtomicByte && u != AtomicCodepoint {
			return errors.Errorf("unknown atomic unit: %d", u)
		}
		b.unit = u
		return nil
	}
}

// WithWorkers sets the parallelism for pair counting and merge application.
func WithWorkers(n int) BuilderOption {
	return func(b *VocabularyBuilder) error {
		if n < 1 {
			return errors.Errorf("worker count must be >= 1, got %d", n)
		}
		b.workers = n
		return nil
	}
}

// WithProgress installs a per-merge progress callback.
func WithProgress(fn ProgressFunc) BuilderOption {
	return func(b *VocabularyBuilder) error {
		b.progress = fn
		return nil
	}
}

// WithCleaner runs the Hindi cleaning pipeline over raw text before
// training. Artifacts record the choice so encode applies the same
// pipeline.
func WithCleaner() BuilderOption {
	return func(b *VocabularyBuilder) error {
		b.clean = true
		return nil
	}
}

// WithStrictValidation rejects corpus units that are not valid UTF-8
// instead of tokenizing their raw bytes.
func WithStrictValidation() BuilderOption {
	return func(b *VocabularyBuilder) error {
		b.strict = true
		return nil
	}
}

// VocabularyBuilder drives the BPE training loop: count pairs, select the
// best candidate, register the merged symbol, rewrite the corpus, repeat
// until convergence or a configured bound. All state is owned by the
// builder; the only externally visible output is the returned Artifact.
type VocabularyBuilder struct {
	maxMerges int
	minFreq   int
	unit      AtomicUnit
	workers   int
	progress  ProgressFunc
	clean     bool
	strict    bool

	state BuilderState
	stats TrainStats
}

// NewVocabularyBuilder constructs a builder with the given options.
func NewVocabularyBuilder(opts ...BuilderOption) (*VocabularyBuilder, error) {
	b := &VocabularyBuilder{
		minFreq: 1,
		unit:    AtomicByte,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, errors.Wrap(err, "failed to apply builder option")
		}
	}
	return b, nil
}

// State reports the builder's current lifecycle state.
func (b *VocabularyBuilder) State() BuilderState { return b.state }

// Stats reports the summary of the last training run. Zero before training.
func (b *VocabularyBuilder) Stats() TrainStats { return b.stats }

// Train cleans (if configured) and splits raw text into whitespace
// corpus units, then trains on them.
func (b *VocabularyBuilder) Train(ctx context.Context, text string) (*Artifact, error) {
	if b.clean {
		cleaner, err := NewCleaner()
		if err != nil {
			return nil, err
		}
		text, err = cleaner.Clean(text)
		if err != nil {
			return nil, errors.Wrap(err, "failed to clean corpus text")
		}
	}
	return b.TrainUnits(ctx, SplitUnits(text))
}

// TrainUnits runs the full training loop over pre-split corpus units and
// returns the frozen vocabulary artifact. The context is checked between
// iterations only; a merge in flight always completes. An error return
// leaves the builder idle, so a fresh run can be attempted.
func (b *VocabularyBuilder) TrainUnits(ctx context.Context, units []string) (*Artifact, error) {
	if b.state != StateIdle {
		return nil, errors.Errorf("builder already used (state %s)", b.state)
	}
	b.state = StateTraining

	table, seqs, err := BuildAlphabet(units, b.unit, b.strict)
	if err != nil {
		b.state = StateIdle
		return nil, err
	}
	corpus := NewCorpus(seqs, b.workers)

	b.stats = TrainStats{
		InitialSymbols: corpus.TotalSymbols(),
		InitialVocab:   table.Len(),
	}

	var mergeTable []Merge
	for {
		if err := ctx.Err(); err != nil {
			b.state = StateIdle
			return nil, errors.Wrap(err, "training interrupted")
		}
		if b.maxMerges > 0 && len(mergeTable) >= b.maxMerges {
			b.state = StateTargetReached
			break
		}

		freq := corpus.CountPairs()
		pair, count, err := SelectMerge(freq, b.minFreq)
		if errors.Is(err, ErrNoMergeCandidate) {
			b.state = StateConverged
			break
		}
		if err != nil {
			b.state = StateIdle
			return nil, err
		}

		result, err := table.RegisterMerge(pair)
		if err != nil {
			b.state = StateIdle
			return nil, err
		}
		replaced := corpus.ApplyMerge(pair, result)
		mergeTable = append(mergeTable, Merge{Left: pair.Left, Right: pair.Right, Result: result})

		if b.progress != nil {
			b.progress(MergeEvent{
				Iteration:    len(mergeTable),
				Pair:         pair,
				Result:       result,
				Frequency:    count,
				Replacements: replaced,
				TotalSymbols: corpus.TotalSymbols(),
				VocabSize:    table.Len(),
			})
		}
	}

	b.stats.FinalSymbols = corpus.TotalSymbols()
	b.stats.FinalVocab = table.Len()
	b.stats.Merges = len(mergeTable)
	if b.stats.FinalSymbols > 0 {
		b.stats.CompressionRatio = float64(b.stats.InitialSymbols) / float64(b.stats.FinalSymbols)
	}

	return &Artifact{
		Unit:   b.unit,
		Clean:  b.clean,
		table:  table,
		merges: mergeTable,
	}, nil
}
