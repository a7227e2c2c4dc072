// Package semantic owns the vector index: persistence of (id, text, embedding)
// triples and top-k similarity search over them. The Qdrant-backed Store is
// the production implementation; MemoryStore backs tests and local runs.
package semantic

// VectorRecord is a single passage to store in the index.
type VectorRecord struct {
	ID        uint64
	Embedding []float32
	Payload   map[string]any // text, schema_version
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID    uint64  `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}
