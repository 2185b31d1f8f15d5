package retrieval

import "errors"

// Input validation and pipeline errors.
//
// The engine fails fast during validation and never fails afterwards:
// pathological-but-finite inputs (all zeros, disjoint graph, empty histories)
// produce a well-defined, possibly empty result. No partial results accompany
// an error.
var (
	// ErrInputShape indicates disagreeing parallel-array lengths, or a corpus
	// whose embedding dimension differs from the probe's.
	ErrInputShape = errors.New("retrieval: input shape mismatch")

	// ErrNumericInput indicates a NaN or Inf in embeddings, weights,
	// histories, or timestamps.
	ErrNumericInput = errors.New("retrieval: non-finite numeric input")

	// ErrModelMismatch indicates embeddings tagged with a different model
	// than the probe's were combined in one call.
	ErrModelMismatch = errors.New("retrieval: embedding model mismatch")

	// ErrCancelled is returned when the caller's context fires before the
	// pipeline completes. No partial results are produced.
	ErrCancelled = errors.New("retrieval: cancelled")

	// ErrConfigOutOfRange indicates an invalid configuration value, such as
	// a negative spreading depth or a decay outside [0, 1].
	ErrConfigOutOfRange = errors.New("retrieval: config out of range")
)
