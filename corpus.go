package hindibpe

import (
	"runtime"
	"sync"
)

// PairFrequency maps an adjacent symbol pair to its occurrence count across
// the corpus. Transient: rebuilt every training iteration.
type PairFrequency map[Pair]int

// Corpus holds the working tokenized representation of the training data:
// one symbol sequence per corpus unit, in input order, mutated in place as
// merges are applied.
type Corpus struct {
	seqs    [][]Symbol
	workers int
}

// NewCorpus wraps the initial symbol sequences. workers <= 0 selects
// runtime.NumCPU.
func NewCorpus(seqs [][]Symbol, workers int) *Corpus {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Corpus{seqs: seqs, workers: workers}
}

// Len reports the number of sequences.
func (c *Corpus) Len() int { return len(c.seqs) }

// TotalSymbols reports the current symbol count summed over all sequences.
func (c *Corpus) TotalSymbols() int {
	n := 0
	for _, s := range c.seqs {
		n += len(s)
	}
	return n
}

// Sequence returns the current state of sequence i. The returned slice
// aliases corpus memory and is invalidated by the next ApplyMerge.
func (c *Corpus) Sequence(i int) []Symbol { return c.seqs[i] }

// shards splits the sequence index space into contiguous worker ranges.
func (c *Corpus) shards() [][2]int {
	n := len(c.seqs)
	w := c.workers
	if w > n {
		w = n
	}
	if w <= 1 {
		if n == 0 {
			return nil
		}
		return [][2]int{{0, n}}
	}
	out := make([][2]int, 0, w)
	chunk := (n + w - 1) / w
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// CountPairs scans every sequence and counts adjacent symbol pairs.
// Sequences shorter than two symbols contribute nothing. The scan is
// sharded across workers with a sum reduction, so the resulting counts are
// independent of scan order.
func (c *Corpus) CountPairs() PairFrequency {
	shards := c.shards()
	if len(shards) == 0 {
		return PairFrequency{}
	}

	results := make(chan PairFrequency, len(shards))
	var wg sync.WaitGroup
	for _, sh := range shards {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			local := make(PairFrequency)
			for _, seq := range c.seqs[lo:hi] {
				for i := 0; i+1 < len(seq); i++ {
					local[Pair{seq[i], seq[i+1]}]++
				}
			}
			results <- local
		}(sh[0], sh[1])
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	freq := make(PairFrequency)
	for local := range results {
		for p, n := range local {
			freq[p] += n
		}
	}
	return freq
}

// ApplyMerge rewrites every sequence, replacing each non-overlapping
// left-to-right occurrence of pair with newSymbol, and returns the total
// number of replacements. After a replacement the scan resumes past the
// consumed pair, so [a a a] under (a,a)→X becomes [X a]. A zero return
// means the merge was a no-op.
func (c *Corpus) ApplyMerge(pair Pair, newSymbol Symbol) int {
	shards := c.shards()
	if len(shards) == 0 {
		return 0
	}

	counts := make(chan int, len(shards))
	var wg sync.WaitGroup
	for _, sh := range shards {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			replaced := 0
			for i := lo; i < hi; i++ {
				var n int
				c.seqs[i], n = mergeSequence(c.seqs[i], pair, newSymbol)
				replaced += n
			}
			counts <- replaced
		}(sh[0], sh[1])
	}
	wg.Wait()
	close(counts)

	total := 0
	for n := range counts {
		total += n
	}
	return total
}

// mergeSequence performs one non-overlapping replacement pass in place.
// The write cursor never overtakes the read cursor, so reusing the backing
// array is safe.
func mergeSequence(seq []Symbol, pair Pair, newSymbol Symbol) ([]Symbol, int) {
	n := len(seq)
	if n < 2 {
		return seq, 0
	}
	out := seq[:0]
	replaced := 0
	for i := 0; i < n; {
		if i+1 < n && seq[i] == pair.Left && seq[i+1] == pair.Right {
			out = append(out, newSymbol)
			i += 2
			replaced++
		} else {
			out = append(out, seq[i])
			i++
		}
	}
	return out, replaced
}
