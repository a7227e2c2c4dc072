package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/bookinglens/bookinglens/engine/domain"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemory()
	if err := m.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	records := []VectorRecord{
		{ID: 0, Embedding: []float32{1, 0, 0}, Payload: map[string]any{"text": "zero"}},
		{ID: 1, Embedding: []float32{0, 1, 0}, Payload: map[string]any{"text": "one"}},
		{ID: 2, Embedding: []float32{1, 1, 0}, Payload: map[string]any{"text": "two"}},
	}
	if err := m.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return m
}

func TestMemoryQuery_RankingOrder(t *testing.T) {
	m := seedMemory(t)

	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Exact match first, 45-degree vector second, orthogonal last.
	if results[0].ID != 0 || results[1].ID != 2 || results[2].ID != 1 {
		t.Errorf("unexpected order: %v, %v, %v", results[0].ID, results[1].ID, results[2].ID)
	}
	if results[0].Text != "zero" {
		t.Errorf("expected payload text, got %q", results[0].Text)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestMemoryQuery_TieBrokenByAscendingID(t *testing.T) {
	m := NewMemory()
	if err := m.EnsureCollection(context.Background(), 2); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	// Same direction, different magnitude: identical cosine scores.
	records := []VectorRecord{
		{ID: 9, Embedding: []float32{2, 0}, Payload: map[string]any{"text": "nine"}},
		{ID: 3, Embedding: []float32{1, 0}, Payload: map[string]any{"text": "three"}},
		{ID: 7, Embedding: []float32{4, 0}, Payload: map[string]any{"text": "seven"}},
	}
	if err := m.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := m.Query(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []uint64{3, 7, 9}
	for i, id := range want {
		if results[i].ID != id {
			t.Fatalf("position %d: got id %d, want %d", i, results[i].ID, id)
		}
	}
}

func TestMemoryQuery_FewerEntriesThanK(t *testing.T) {
	m := seedMemory(t)
	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("index smaller than k should return all entries, got %d", len(results))
	}
}

func TestMemoryQuery_EmptyIndex(t *testing.T) {
	m := NewMemory()
	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("empty index should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryQuery_DimensionMismatch(t *testing.T) {
	m := seedMemory(t)
	_, err := m.Query(context.Background(), []float32{1, 0}, 3)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMemoryUpsert_DimensionMismatch(t *testing.T) {
	m := seedMemory(t)
	err := m.Upsert(context.Background(), []VectorRecord{{ID: 5, Embedding: []float32{1}}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if ok, _ := m.Exists(context.Background(), 5); ok {
		t.Error("failed upsert must not leave partial state")
	}
}

func TestMemoryExistsBatch(t *testing.T) {
	m := seedMemory(t)
	got, err := m.ExistsBatch(context.Background(), []uint64{0, 2, 42})
	if err != nil {
		t.Fatalf("ExistsBatch: %v", err)
	}
	if !got[0] || !got[2] || got[42] {
		t.Errorf("unexpected existence map: %v", got)
	}
}

func TestMemoryEnsureCollection_DimsConflict(t *testing.T) {
	m := NewMemory()
	if err := m.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := m.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("ensure should be idempotent: %v", err)
	}
	if err := m.EnsureCollection(context.Background(), 4); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch on dims change, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors should score ~1, got %v", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors should score 0, got %v", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %v", got)
	}
}
