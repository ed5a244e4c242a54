package pipeline

import "errors"

// Error classification for fatal setup errors (§7). Corrupt-stream
// detection and duplicate-verification mismatches are deliberately NOT
// represented here: per §7 they are correctness-preserving outcomes
// (literal fallback) and are never surfaced as errors.
var (
	// ErrSourceTooLarge indicates the source file's index, update log, or
	// rank-map would exceed what this implementation's integer types can
	// address.
	ErrSourceTooLarge = errors.New("pipeline: source too large for this build")

	// ErrInvalidBlockSize indicates a block size of zero or less was
	// requested.
	ErrInvalidBlockSize = errors.New("pipeline: block size must be positive")
)
