package hindibpe

import (
	"github.com/pkg/errors"
)

// Sentinel errors for the tokenizer core. Callers should match with
// errors.Is; context (offsets, symbol ids, file paths) is attached by
// wrapping, never by replacing the sentinel.
var (
	// ErrInvalidEncoding reports input bytes that do not form valid UTF-8.
	// Raised only in byte mode with strict validation enabled.
	ErrInvalidEncoding = errors.New("invalid UTF-8 in input")

	// ErrNoMergeCandidate signals that no adjacent pair is available (or
	// none meets the minimum frequency). During training this is the normal
	// convergence signal, not a failure.
	ErrNoMergeCandidate = errors.New("no merge candidate")

	// ErrUnknownSymbol reports an atomic unit unseen during training while
	// encoding in strict mode.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrArtifactCorrupt reports a persisted vocabulary whose internal
	// references are inconsistent. Unrecoverable: a tokenizer must never be
	// built from such an artifact.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)
