// Package config loads application configuration from a YAML file
// with environment overrides. A .env file in the working directory is
// read first, so local setups can keep the OpenAI key out of the
// shell.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// QdrantConfig contains connection details for the vector store.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// EmbedderConfig selects and configures the embedder backend.
type EmbedderConfig struct {
	Type      string `yaml:"type"` // "openai" or "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	OllamaURL string `yaml:"ollama_url"`
	Dims      int    `yaml:"dims"`
}

// GeneratorConfig configures the chat completion backend.
type GeneratorConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// RAGConfig tunes the answering pipeline.
type RAGConfig struct {
	TopK                int `yaml:"top_k"`
	ContextBudget       int `yaml:"context_budget"`
	SearchTimeoutSecs   int `yaml:"search_timeout_secs"`
	GenerateTimeoutSecs int `yaml:"generate_timeout_secs"`
}

func (c RAGConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSecs) * time.Second
}

func (c RAGConfig) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSecs) * time.Second
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	RAG       RAGConfig       `yaml:"rag"`
}

// Load reads configuration from path. A missing file yields defaults;
// environment variables override either way. Call APIKey on the
// embedder or generator section to resolve the actual secret.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// APIKey resolves the embedder's API key from the environment.
func (c EmbedderConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

// APIKey resolves the generator's API key from the environment.
func (c GeneratorConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", CORSOrigin: "*"},
		Qdrant: QdrantConfig{Addr: "localhost:6334", Collection: "bookings"},
		Embedder: EmbedderConfig{
			Type:      "openai",
			APIKeyEnv: "OPENAI_API_KEY",
			OllamaURL: "http://localhost:11434",
		},
		Generator: GeneratorConfig{APIKeyEnv: "OPENAI_API_KEY"},
		RAG: RAGConfig{
			TopK:                5,
			SearchTimeoutSecs:   5,
			GenerateTimeoutSecs: 30,
		},
	}
}

func applyEnv(cfg *Config) {
	overrideStr(&cfg.Server.Port, "PORT")
	overrideStr(&cfg.Server.CORSOrigin, "CORS_ORIGIN")
	overrideStr(&cfg.Qdrant.Addr, "QDRANT_URL")
	overrideStr(&cfg.Qdrant.Collection, "QDRANT_COLLECTION")
	overrideStr(&cfg.Embedder.Type, "EMBEDDER_TYPE")
	overrideStr(&cfg.Embedder.Model, "EMBEDDER_MODEL")
	overrideStr(&cfg.Embedder.OllamaURL, "OLLAMA_URL")
	overrideStr(&cfg.Generator.Model, "GENERATOR_MODEL")
}

func overrideStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.SearchTimeoutSecs <= 0 {
		cfg.RAG.SearchTimeoutSecs = 5
	}
	if cfg.RAG.GenerateTimeoutSecs <= 0 {
		cfg.RAG.GenerateTimeoutSecs = 30
	}
}
