// Command api serves the question-answering HTTP API over the
// ingested booking index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookinglens/bookinglens/engine/rag"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/config"
	"github.com/bookinglens/bookinglens/pkg/embedder"
	"github.com/bookinglens/bookinglens/pkg/fn"
	"github.com/bookinglens/bookinglens/pkg/generator"
	"github.com/bookinglens/bookinglens/pkg/metrics"
	"github.com/bookinglens/bookinglens/pkg/mid"
	"github.com/bookinglens/bookinglens/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, emb.Dimension()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	gen := &resilientGenerator{
		inner:   generator.NewOpenAI(cfg.Generator.APIKey(), cfg.Generator.Model),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		retry:   fn.DefaultRetry,
	}

	opts := rag.DefaultOptions()
	opts.TopK = cfg.RAG.TopK
	opts.ContextBudget = cfg.RAG.ContextBudget
	opts.SearchTimeout = cfg.RAG.SearchTimeout()
	opts.GenerateTimeout = cfg.RAG.GenerateTimeout()
	ragSvc := rag.New(emb, store, gen, opts, logger)

	reg := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(store))
	mux.Handle("POST /api/ask", handleAsk(ragSvc, reg, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.Server.CORSOrigin),
		mid.OTel("bookinglens-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func buildEmbedder(cfg config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Type {
	case "", "openai":
		return embedder.NewOpenAI(cfg.APIKey(), cfg.Model)
	case "ollama":
		model := cfg.Model
		if model == "" {
			model = embedder.DefaultOllamaModel
		}
		dims := cfg.Dims
		if dims == 0 {
			dims = 768
		}
		return embedder.NewOllama(cfg.OllamaURL, model, dims), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}
