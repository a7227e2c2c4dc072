// Command chat is an interactive REPL over the booking index.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bookinglens/bookinglens/engine/rag"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/config"
	"github.com/bookinglens/bookinglens/pkg/embedder"
	"github.com/bookinglens/bookinglens/pkg/generator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Keep structured logs off stdout so they don't interleave with the REPL.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	gen := generator.NewOpenAI(cfg.Generator.APIKey(), cfg.Generator.Model)

	opts := rag.DefaultOptions()
	opts.TopK = cfg.RAG.TopK
	opts.ContextBudget = cfg.RAG.ContextBudget
	opts.SearchTimeout = cfg.RAG.SearchTimeout()
	opts.GenerateTimeout = cfg.RAG.GenerateTimeout()
	svc := rag.New(emb, store, gen, opts, logger)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nAsk a question (or type 'exit' to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") {
			return nil
		}

		answer, err := svc.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println("Answer:", answer.Text)
	}
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
