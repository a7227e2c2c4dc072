package embedder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bookinglens/bookinglens/engine/domain"
	"github.com/bookinglens/bookinglens/pkg/fn"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultOpenAIModel matches the embedding model dimensionality the
	// index is created with.
	DefaultOpenAIModel = "text-embedding-3-small"

	openaiBatchSize = 32
	openaiWorkers   = 4
)

// OpenAI embeds text via the OpenAI embeddings API. Requests are paced with
// a client-side rate limiter so large ingestion runs stay under the API quota.
type OpenAI struct {
	client  *openai.Client
	model   string
	dims    int
	limiter *rate.Limiter
}

// NewOpenAI creates an OpenAI embedder.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("embedder: OpenAI API key is empty")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := 1536
	if model == "text-embedding-3-large" {
		dims = 3072
	}
	return &OpenAI{
		client:  openai.NewClient(apiKey),
		model:   model,
		dims:    dims,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in batches with bounded concurrency. Output order
// matches input order.
func (e *OpenAI) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if err := validateInput(t); err != nil {
			return nil, fmt.Errorf("embedder: text %d: %w", i, err)
		}
	}

	batches := fn.Chunk(texts, openaiBatchSize)
	results := fn.ParMapResult(batches, openaiWorkers, func(batch []string) fn.Result[[][]float32] {
		return fn.FromPair(e.embedBatch(ctx, batch))
	})

	collected, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range collected {
		out = append(out, batch...)
	}
	return out, nil
}

// embedBatch issues one API call for up to openaiBatchSize texts.
func (e *OpenAI) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedder: rate wait: %w", err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: batch,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: openai: %w: %v", domain.ErrEmbedding, err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("embedder: openai: %w: got %d embeddings for %d inputs", domain.ErrEmbedding, len(resp.Data), len(batch))
	}

	// The API tags each embedding with its input index; order by it rather
	// than trusting response order.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimension returns the embedding dimensionality for the configured model.
func (e *OpenAI) Dimension() int { return e.dims }

// Model returns the model identifier.
func (e *OpenAI) Model() string { return e.model }
