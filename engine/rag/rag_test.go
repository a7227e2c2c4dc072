package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bookinglens/bookinglens/engine/domain"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/generator"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

type stubSearcher struct {
	results []semantic.SearchResult
	err     error
	gotK    int
}

func (s *stubSearcher) Query(_ context.Context, _ []float32, k int) ([]semantic.SearchResult, error) {
	s.gotK = k
	return s.results, s.err
}

type stubGenerator struct {
	calls  int
	gotReq generator.Request
	text   string
	err    error
	delay  time.Duration
}

func (s *stubGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	s.calls++
	s.gotReq = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func passages(texts ...string) []semantic.SearchResult {
	out := make([]semantic.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = semantic.SearchResult{ID: uint64(i), Score: 1 - float32(i)*0.1, Text: t}
	}
	return out
}

func TestAsk(t *testing.T) {
	search := &stubSearcher{results: passages("Resort Hotel PRT 10 99.5 0 July", "City Hotel GBR 3 80 1 May")}
	gen := &stubGenerator{text: "Mostly resort stays."}
	svc := New(&stubEmbedder{}, search, gen, DefaultOptions(), nil)

	ans, err := svc.Ask(context.Background(), "What hotels appear most?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "Mostly resort stays." {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(ans.Sources))
	}
	if search.gotK != 5 {
		t.Errorf("search k = %d, want 5", search.gotK)
	}
	if gen.gotReq.System != "You are a helpful assistant analyzing booking data." {
		t.Errorf("system prompt = %q", gen.gotReq.System)
	}
	wantCtx := "Resort Hotel PRT 10 99.5 0 July City Hotel GBR 3 80 1 May"
	if !strings.Contains(gen.gotReq.User, wantCtx) {
		t.Errorf("prompt missing joined context:\n%s", gen.gotReq.User)
	}
	if !strings.Contains(gen.gotReq.User, "What hotels appear most?") {
		t.Errorf("prompt missing question:\n%s", gen.gotReq.User)
	}
}

func TestAsk_EmptyIndexFallsBack(t *testing.T) {
	gen := &stubGenerator{text: "should not be used"}
	svc := New(&stubEmbedder{}, &stubSearcher{}, gen, DefaultOptions(), nil)

	ans, err := svc.Ask(context.Background(), "Anything?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "I couldn't find relevant booking data." {
		t.Errorf("fallback = %q", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("fallback answer should carry no sources, got %d", len(ans.Sources))
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on empty retrieval", gen.calls)
	}
}

func TestAsk_InvalidQuestion(t *testing.T) {
	gen := &stubGenerator{}
	svc := New(&stubEmbedder{}, &stubSearcher{}, gen, DefaultOptions(), nil)

	for _, q := range []string{"", "   ", strings.Repeat("x", domain.MaxQuestionLen+1)} {
		if _, err := svc.Ask(context.Background(), q); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("question %q: expected ErrInvalidQuery, got %v", q, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called for invalid questions")
	}
}

func TestAsk_EmbedError(t *testing.T) {
	cause := fmt.Errorf("embedder: openai: %w: backend down", domain.ErrEmbedding)
	svc := New(&stubEmbedder{err: cause}, &stubSearcher{}, &stubGenerator{}, DefaultOptions(), nil)

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestAsk_SearchError(t *testing.T) {
	cause := fmt.Errorf("semantic: search: %w: unavailable", domain.ErrIndexUnavailable)
	svc := New(&stubEmbedder{}, &stubSearcher{err: cause}, &stubGenerator{}, DefaultOptions(), nil)

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestAsk_GenerateError(t *testing.T) {
	gen := &stubGenerator{err: generator.Classify(generator.CategoryServiceUnavailable, errors.New("down"))}
	svc := New(&stubEmbedder{}, &stubSearcher{results: passages("p")}, gen, DefaultOptions(), nil)

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatal("non-timeout failure classified as timeout")
	}
}

func TestAsk_GenerateTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.GenerateTimeout = 10 * time.Millisecond

	gen := &stubGenerator{delay: time.Second}
	svc := New(&stubEmbedder{}, &stubSearcher{results: passages("p")}, gen, opts, nil)

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

func TestAsk_ContextBudget(t *testing.T) {
	opts := DefaultOptions()
	// First passage (5) + sep (1) + second (5) = 11 fits;
	// adding the third (1+5) would need 17.
	opts.ContextBudget = 12

	gen := &stubGenerator{text: "ok"}
	svc := New(&stubEmbedder{}, &stubSearcher{results: passages("aaaaa", "bbbbb", "ccccc")}, gen, opts, nil)

	ans, err := svc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(ans.Sources))
	}
	if strings.Contains(gen.gotReq.User, "ccccc") {
		t.Error("over-budget passage leaked into the prompt")
	}
	if !strings.Contains(gen.gotReq.User, "aaaaa bbbbb") {
		t.Errorf("prompt context wrong:\n%s", gen.gotReq.User)
	}
}

func TestAsk_BudgetAlwaysKeepsTopPassage(t *testing.T) {
	opts := DefaultOptions()
	opts.ContextBudget = 3

	gen := &stubGenerator{text: "ok"}
	svc := New(&stubEmbedder{}, &stubSearcher{results: passages("long top passage", "next")}, gen, opts, nil)

	ans, err := svc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(ans.Sources))
	}
	if ans.Sources[0].Text != "long top passage" {
		t.Errorf("kept passage = %q", ans.Sources[0].Text)
	}
}

func TestAsk_CanceledBeforeGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &stubGenerator{}
	svc := New(&stubEmbedder{}, &stubSearcher{results: passages("p")}, gen, DefaultOptions(), nil)

	if _, err := svc.Ask(ctx, "q"); err == nil {
		t.Fatal("expected error from canceled context")
	}
	if gen.calls != 0 {
		t.Errorf("generator called after cancellation")
	}
}
