// Package rag orchestrates retrieval-augmented answering. It embeds a
// question, searches the vector index for relevant booking passages,
// assembles a bounded context, and asks the generator for the answer.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookinglens/bookinglens/engine/domain"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/generator"
)

// Embedder produces the query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs nearest-neighbour search over the vector index.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, k int) ([]semantic.SearchResult, error)
}

// Generator produces the final answer from the assembled prompt.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (string, error)
}

// Options configures the answering pipeline.
type Options struct {
	TopK            int
	ContextBudget   int // max context length in bytes, 0 means unlimited
	Separator       string
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
	SystemPrompt    string
	FallbackAnswer  string
}

func DefaultOptions() Options {
	return Options{
		TopK:            5,
		ContextBudget:   0,
		Separator:       " ",
		SearchTimeout:   5 * time.Second,
		GenerateTimeout: 30 * time.Second,
		SystemPrompt:    defaultSystemPrompt,
		FallbackAnswer:  defaultFallback,
	}
}

const (
	defaultSystemPrompt = "You are a helpful assistant analyzing booking data."
	defaultFallback     = "I couldn't find relevant booking data."
)

const promptTemplate = `You are an AI assistant analyzing hotel booking data.

**Available Data:**
%s

Answer the following question based on the given data:
**Question:** %s

Provide a clear, concise, and correct response.`

// Service answers questions over ingested booking passages.
type Service struct {
	embedder Embedder
	searcher Searcher
	gen      Generator
	opts     Options
	log      *slog.Logger
}

func New(embedder Embedder, searcher Searcher, gen Generator, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.FallbackAnswer == "" {
		opts.FallbackAnswer = defaultFallback
	}
	return &Service{embedder: embedder, searcher: searcher, gen: gen, opts: opts, log: log}
}

// Answer is the structured response for one question.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Source is one retrieved passage backing the answer.
type Source struct {
	ID    uint64  `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// Ask runs the full pipeline for one question. When retrieval finds
// nothing, it returns the fallback answer without calling the
// generator.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	s.log.Info("rag.ask", "question_len", len(question))

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embed question: %w", err)
	}

	searchCtx := ctx
	if s.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
		defer cancel()
	}
	results, err := s.searcher.Query(searchCtx, embedding, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	s.log.Info("rag.search", "results", len(results))

	if len(results) == 0 {
		return &Answer{Text: s.opts.FallbackAnswer, Sources: []Source{}}, nil
	}

	kept := truncateToBudget(results, s.opts.ContextBudget, len(s.opts.Separator))
	contextText := joinPassages(kept, s.opts.Separator)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rag: %w", err)
	}

	genCtx := ctx
	if s.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer cancel()
	}
	text, err := s.gen.Generate(genCtx, generator.Request{
		System: s.opts.SystemPrompt,
		User:   fmt.Sprintf(promptTemplate, contextText, question),
	})
	if err != nil {
		return nil, classifyGeneration(err)
	}

	sources := make([]Source, len(kept))
	for i, r := range kept {
		sources[i] = Source{ID: r.ID, Score: r.Score, Text: r.Text}
	}
	return &Answer{Text: text, Sources: sources}, nil
}

// truncateToBudget keeps whole passages in rank order until the budget
// is spent. The top passage is always kept, even when it alone exceeds
// the budget.
func truncateToBudget(results []semantic.SearchResult, budget, sepLen int) []semantic.SearchResult {
	if budget <= 0 || len(results) == 0 {
		return results
	}
	kept := results[:1]
	used := len(results[0].Text)
	for _, r := range results[1:] {
		next := used + sepLen + len(r.Text)
		if next > budget {
			break
		}
		kept = append(kept, r)
		used = next
	}
	return kept
}

func joinPassages(results []semantic.SearchResult, sep string) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, sep)
}

func classifyGeneration(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || generator.CategoryOf(err) == generator.CategoryTimeout {
		return fmt.Errorf("rag: generate: %w: %v", domain.ErrGenerationTimeout, err)
	}
	return fmt.Errorf("rag: generate: %w: %v", domain.ErrGeneration, err)
}
