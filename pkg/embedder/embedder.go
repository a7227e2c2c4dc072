// Package embedder maps text to fixed-length dense vectors. Implementations
// must be deterministic for a fixed model version: identical text yields the
// identical vector.
package embedder

import (
	"context"
	"fmt"

	"github.com/bookinglens/bookinglens/engine/domain"
)

// MaxInputLen is a conservative byte bound on a single input. Inputs past
// the model's token limit are rejected, never silently truncated.
const MaxInputLen = 8192

// Embedder converts text into embeddings, singly or in batches.
// EmbedMany(xs)[i] must equal Embed(xs[i]) for all i; batching is a
// throughput optimization, not a semantic change.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// validateInput rejects empty or oversized inputs before any model call.
func validateInput(text string) error {
	if text == "" {
		return fmt.Errorf("%w: input text is empty", domain.ErrEmbedding)
	}
	if len(text) > MaxInputLen {
		return fmt.Errorf("%w: input is %d bytes, limit %d", domain.ErrEmbedding, len(text), MaxInputLen)
	}
	return nil
}
