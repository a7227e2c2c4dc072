package semantic

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/bookinglens/bookinglens/engine/domain"
)

// MemoryStore is an in-process vector index with the same contract as Store.
// It backs unit tests and the "memory" index mode, where persistence across
// restarts is not required.
type MemoryStore struct {
	mu      sync.RWMutex
	dims    int
	entries map[uint64]memEntry
}

type memEntry struct {
	text      string
	embedding []float32
}

// NewMemory creates an empty in-memory index.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[uint64]memEntry)}
}

// EnsureCollection records the expected dimensionality. Idempotent.
func (m *MemoryStore) EnsureCollection(_ context.Context, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims != 0 && m.dims != dims {
		return fmt.Errorf("semantic: collection has %d dims, want %d: %w", m.dims, dims, domain.ErrDimensionMismatch)
	}
	m.dims = dims
	return nil
}

// Ping always succeeds for the in-process index.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// DeleteCollection drops all entries.
func (m *MemoryStore) DeleteCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uint64]memEntry)
	m.dims = 0
	return nil
}

// Exists reports whether an id is indexed.
func (m *MemoryStore) Exists(_ context.Context, id uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok, nil
}

// ExistsBatch reports presence for many ids.
func (m *MemoryStore) ExistsBatch(_ context.Context, ids []uint64) (map[uint64]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.entries[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// Upsert stores records, overwriting existing ids.
func (m *MemoryStore) Upsert(_ context.Context, records []VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.dims > 0 && len(r.Embedding) != m.dims {
			return fmt.Errorf("semantic: upsert id %d: got %d dims, want %d: %w", r.ID, len(r.Embedding), m.dims, domain.ErrDimensionMismatch)
		}
		text, _ := r.Payload[domain.PayloadText].(string)
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)
		m.entries[r.ID] = memEntry{text: text, embedding: emb}
	}
	return nil
}

// Query returns the k entries most similar to the embedding by cosine
// similarity, descending, ties broken by ascending id.
func (m *MemoryStore) Query(_ context.Context, embedding []float32, k int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims > 0 && len(embedding) != m.dims {
		return nil, fmt.Errorf("semantic: query: got %d dims, want %d: %w", len(embedding), m.dims, domain.ErrDimensionMismatch)
	}

	results := make([]SearchResult, 0, len(m.entries))
	for id, e := range m.entries {
		results = append(results, SearchResult{
			ID:    id,
			Score: cosine(embedding, e.embedding),
			Text:  e.text,
		})
	}
	sortResults(results)
	if k >= 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cosine computes cosine similarity; zero vectors score 0.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
