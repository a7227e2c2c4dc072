// Package ingest builds text passages from booking records, embeds
// them, and writes them to the vector index in idempotent batches.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookinglens/bookinglens/engine/domain"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/fn"
)

// BatchSize is the max records per embed-and-upsert batch.
const BatchSize = 100

// Embedder produces vectors for passage text.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Index is the slice of the vector store the pipeline writes to.
type Index interface {
	EnsureCollection(ctx context.Context, dims int) error
	ExistsBatch(ctx context.Context, ids []uint64) (map[uint64]bool, error)
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Report summarizes one ingestion run.
type Report struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Pipeline ingests booking records into the vector index. A record's
// position in the input slice is its point id, so re-running the same
// dataset skips everything already present.
type Pipeline struct {
	embedder Embedder
	index    Index
	batch    int
	log      *slog.Logger
}

type Option func(*Pipeline)

// WithBatchSize overrides the default batch size.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batch = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

func New(embedder Embedder, index Index, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder: embedder,
		index:    index,
		batch:    BatchSize,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// item pairs a record's ordinal id with its passage text.
type item struct {
	id   uint64
	text string
}

// batchState flows through the per-batch pipeline stages.
type batchState struct {
	items   []item
	skipped int
	vectors [][]float32
}

// Ingest embeds and stores every record not already in the index.
// On a batch failure it returns the counts accumulated so far along
// with the error; completed batches are not rolled back.
func (p *Pipeline) Ingest(ctx context.Context, records []domain.Record) (Report, error) {
	var report Report

	if err := p.index.EnsureCollection(ctx, p.embedder.Dimension()); err != nil {
		return report, fmt.Errorf("ingest: ensure collection: %w", err)
	}
	if len(records) == 0 {
		return report, nil
	}

	items := make([]item, len(records))
	for i, r := range records {
		items[i] = item{id: uint64(i), text: domain.BuildPassage(r)}
	}

	// Filter → embed → store, composed per batch.
	stage := fn.Then(
		fn.TracedStage("ingest.filter", p.filterExisting()),
		fn.Then(
			fn.TracedStage("ingest.embed", p.embed()),
			fn.TracedStage("ingest.store", p.store()),
		),
	)

	start := time.Now()
	for i, chunk := range fn.Chunk(items, p.batch) {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest: batch %d: %w", i, err)
		}

		res := stage(ctx, batchState{items: chunk})
		out, err := res.Unwrap()
		if err != nil {
			return report, fmt.Errorf("ingest: batch %d: %w", i, err)
		}

		report.Added += len(out.items)
		report.Skipped += out.skipped
	}

	p.log.Info("ingest.done",
		"added", report.Added,
		"skipped", report.Skipped,
		"duration", time.Since(start),
	)
	return report, nil
}

// filterExisting drops items whose ids are already in the index.
func (p *Pipeline) filterExisting() fn.Stage[batchState, batchState] {
	return func(ctx context.Context, b batchState) fn.Result[batchState] {
		ids := make([]uint64, len(b.items))
		for i, it := range b.items {
			ids[i] = it.id
		}
		present, err := p.index.ExistsBatch(ctx, ids)
		if err != nil {
			return fn.Errf[batchState]("exists: %w", err)
		}

		kept := b.items[:0]
		for _, it := range b.items {
			if present[it.id] {
				b.skipped++
				continue
			}
			kept = append(kept, it)
		}
		b.items = kept
		return fn.Ok(b)
	}
}

func (p *Pipeline) embed() fn.Stage[batchState, batchState] {
	return func(ctx context.Context, b batchState) fn.Result[batchState] {
		if len(b.items) == 0 {
			return fn.Ok(b)
		}
		texts := make([]string, len(b.items))
		for i, it := range b.items {
			texts[i] = it.text
		}
		vectors, err := p.embedder.EmbedMany(ctx, texts)
		if err != nil {
			return fn.Errf[batchState]("embed: %w", err)
		}
		if len(vectors) != len(texts) {
			return fn.Errf[batchState]("embed: got %d vectors for %d texts", len(vectors), len(texts))
		}
		b.vectors = vectors
		return fn.Ok(b)
	}
}

func (p *Pipeline) store() fn.Stage[batchState, batchState] {
	return func(ctx context.Context, b batchState) fn.Result[batchState] {
		if len(b.items) == 0 {
			return fn.Ok(b)
		}
		records := make([]semantic.VectorRecord, len(b.items))
		for i, it := range b.items {
			records[i] = semantic.VectorRecord{
				ID:        it.id,
				Embedding: b.vectors[i],
				Payload: map[string]any{
					domain.PayloadText:          it.text,
					domain.PayloadSchemaVersion: domain.PassageSchemaVersion,
				},
			}
		}
		if err := p.index.Upsert(ctx, records); err != nil {
			return fn.Errf[batchState]("store: %w", err)
		}
		return fn.Ok(b)
	}
}
