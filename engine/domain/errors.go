package domain

import "errors"

// Sentinel errors for the retrieval pipeline. Callers match with errors.Is;
// the HTTP layer maps them to response codes via KindOf.
var (
	// ErrInvalidQuery marks bad user input. Not retryable.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbedding marks an embedding model or input fault.
	ErrEmbedding = errors.New("embedding failed")
	// ErrDimensionMismatch marks embedder/index version skew. Fatal; must not
	// be coerced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrIndexUnavailable marks a vector index infrastructure fault.
	// Recoverable by caller retry with backoff.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrGeneration marks a generator service fault.
	ErrGeneration = errors.New("generation failed")
	// ErrGenerationTimeout marks a generator call that exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// Error kinds as reported to callers of the query entrypoint.
const (
	KindInvalidQuery      = "invalid_query"
	KindEmbedding         = "embedding"
	KindDimensionMismatch = "dimension_mismatch"
	KindIndexUnavailable  = "index_unavailable"
	KindGeneration        = "generation"
	KindGenerationTimeout = "generation_timeout"
	KindInternal          = "internal"
)

// KindOf maps a pipeline error to its stable kind string.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrIndexUnavailable):
		return KindIndexUnavailable
	case errors.Is(err, ErrGenerationTimeout):
		return KindGenerationTimeout
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	default:
		return KindInternal
	}
}
