// Command ingest loads a bookings CSV export, embeds each record's
// passage, and writes the vectors to Qdrant. Re-running on the same
// dataset is a no-op; --force drops the collection first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bookinglens/bookinglens/engine/ingest"
	"github.com/bookinglens/bookinglens/engine/semantic"
	"github.com/bookinglens/bookinglens/pkg/config"
	"github.com/bookinglens/bookinglens/pkg/dataset"
	"github.com/bookinglens/bookinglens/pkg/embedder"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		csvPath    = flag.String("csv", "data/cleaned_bookings.csv", "bookings CSV export")
		batchSize  = flag.Int("batch", ingest.BatchSize, "records per embed batch")
		force      = flag.Bool("force", false, "drop the collection and re-index everything")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*configPath, *csvPath, *batchSize, *force, logger); err != nil {
		logger.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, csvPath string, batchSize int, force bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	records, err := dataset.Load(csvPath)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "path", csvPath, "records", len(records))

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if force {
		logger.Info("dropping collection", "collection", cfg.Qdrant.Collection)
		if err := store.DeleteCollection(ctx); err != nil {
			return err
		}
	}

	pipeline := ingest.New(emb, store,
		ingest.WithBatchSize(batchSize),
		ingest.WithLogger(logger),
	)

	start := time.Now()
	report, err := pipeline.Ingest(ctx, records)
	if err != nil {
		logger.Error("partial ingest",
			"added", report.Added,
			"skipped", report.Skipped,
			"err", err,
		)
		return err
	}

	logger.Info("ingest complete",
		"added", report.Added,
		"skipped", report.Skipped,
		"duration", time.Since(start),
	)
	return json.NewEncoder(os.Stdout).Encode(report)
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
