package hindibpe

// SelectMerge picks the most frequent pair from freq, ignoring pairs seen
// fewer than minFreq times (minFreq <= 1 considers everything).
//
// Ties are common on small corpora, so the winner among equal counts is the
// lexicographically smallest (left, right) symbol-id pair. Symbol ids grow
// in registration order, which makes this "earliest-registered symbols win"
// and training fully reproducible for identical input and configuration.
//
// An empty table, or one with nothing at or above minFreq, returns
// ErrNoMergeCandidate. For the training loop that is the convergence
// signal, not a failure.
func SelectMerge(freq PairFrequency, minFreq int) (Pair, int, error) {
	if minFreq < 1 {
		minFreq = 1
	}
	var best Pair
	bestCount := 0
	for p, n := range freq {
		if n < minFreq {
			continue
		}
		if n > bestCount || (n == bestCount && pairLess(p, best)) {
			best = p
			bestCount = n
		}
	}
	if bestCount == 0 {
		return Pair{}, 0, ErrNoMergeCandidate
	}
	return best, bestCount, nil
}

func pairLess(a, b Pair) bool {
	if a.Left != b.Left {
		return a.Left < b.Left
	}
	return a.Right < b.Right
}
