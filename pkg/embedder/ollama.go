package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bookinglens/bookinglens/engine/domain"
)

// DefaultOllamaModel is a local embedding model with 768 dimensions.
const DefaultOllamaModel = "nomic-embed-text"

// Ollama embeds text via a local Ollama server's HTTP API.
type Ollama struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewOllama creates an Ollama embedder. dims must match the model's output
// dimensionality (768 for nomic-embed-text).
func NewOllama(baseURL, model string, dims int) *Ollama {
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{},
	}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates the embedding for a single text.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateInput(text); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(ollamaEmbedReq{Model: e.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: ollama: %w: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder: ollama: %w: status %d", domain.ErrEmbedding, resp.StatusCode)
	}

	var result ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedder: ollama decode: %w: %v", domain.ErrEmbedding, err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedMany embeds texts one call at a time; the Ollama embeddings endpoint
// takes a single prompt per request.
func (e *Ollama) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedder: batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the configured embedding dimensionality.
func (e *Ollama) Dimension() int { return e.dims }

// Model returns the model identifier.
func (e *Ollama) Model() string { return e.model }
