package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookinglens/bookinglens/engine/domain"
	"github.com/bookinglens/bookinglens/engine/rag"
	"github.com/bookinglens/bookinglens/pkg/fn"
	"github.com/bookinglens/bookinglens/pkg/generator"
	"github.com/bookinglens/bookinglens/pkg/metrics"
	"github.com/bookinglens/bookinglens/pkg/mid"
	"github.com/bookinglens/bookinglens/pkg/resilience"
)

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the JSON response for POST /api/ask.
type AskResponse struct {
	Answer  string       `json:"answer"`
	Sources []rag.Source `json:"sources"`
}

// ErrorResponse carries a failure kind and message to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func handleHealth(store pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := store.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func handleAsk(svc asker, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	latency := reg.Histogram("ask_duration_seconds", "Time to answer a question.", nil)
	total := func(kind string) *metrics.Counter {
		return reg.Counter(metrics.WithLabels("ask_total", "kind", kind), "Questions by outcome kind.")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, domain.KindInvalidQuery, "invalid request body")
			total(domain.KindInvalidQuery).Inc()
			return
		}

		answer, err := svc.Ask(r.Context(), req.Question)
		latency.Since(start)
		if err != nil {
			kind := domain.KindOf(err)
			logger.Error("ask failed",
				"err", err,
				"kind", kind,
				"request_id", mid.RequestIDFrom(r.Context()),
			)
			writeError(w, statusFor(err, kind), kind, publicMessage(kind))
			total(kind).Inc()
			return
		}

		total("ok").Inc()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AskResponse{Answer: answer.Text, Sources: answer.Sources})
	}
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Kind: kind})
}

func statusFor(err error, kind string) int {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	switch kind {
	case domain.KindInvalidQuery:
		return http.StatusBadRequest
	case domain.KindIndexUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindGenerationTimeout:
		return http.StatusGatewayTimeout
	case domain.KindEmbedding, domain.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(kind string) string {
	switch kind {
	case domain.KindInvalidQuery:
		return "question is empty or too long"
	case domain.KindIndexUnavailable:
		return "search index unavailable"
	case domain.KindGenerationTimeout:
		return "answer generation timed out"
	case domain.KindEmbedding:
		return "embedding backend failed"
	case domain.KindGeneration:
		return "answer generation failed"
	default:
		return "internal server error"
	}
}

// resilientGenerator guards the upstream chat API with a circuit
// breaker and retries transient failures.
type resilientGenerator struct {
	inner   generator.Generator
	breaker *resilience.Breaker
	retry   fn.RetryOpts
}

func (g *resilientGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	var out string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		res := fn.RetryIf(ctx, g.retry, generator.Retryable, func(ctx context.Context) fn.Result[string] {
			return fn.FromPair(g.inner.Generate(ctx, req))
		})
		var err error
		out, err = res.Unwrap()
		return err
	})
	return out, err
}
