// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Vector store backends.
const (
	StoreSQLite = "sqlite"
	StoreQdrant = "qdrant"
)

// Embedding backends.
const (
	EmbedOllama = "ollama"
	EmbedOpenAI = "openai"
)

// Defaults chosen to match the ingestion contract: 1000-character chunks
// with a 200-character overlap.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultRetrieveK    = 5
)

// Config holds every knob the pipeline and servers consume.
type Config struct {
	// DataDir is the root for all persisted state: the vector index
	// directory, the metadata database and content backups.
	DataDir string

	ChunkSize    int
	ChunkOverlap int

	EmbeddingBackend string
	EmbeddingModel   string
	OllamaHost       string

	VectorStore string
	QdrantHost  string
	QdrantPort  int

	// ProcessTimeout bounds the processing of a single document. A stuck
	// loader or embedding call fails that document with reason "timeout"
	// instead of blocking the batch forever.
	ProcessTimeout time.Duration
}

// Load reads configuration from the environment. A .env file is honored if
// present (local development) and silently skipped otherwise.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:          getEnv("DOCBASE_DATA_DIR", defaultDataDir()),
		ChunkSize:        getEnvInt("DOCBASE_CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:     getEnvInt("DOCBASE_CHUNK_OVERLAP", DefaultChunkOverlap),
		EmbeddingBackend: getEnv("DOCBASE_EMBEDDING_BACKEND", EmbedOllama),
		EmbeddingModel:   getEnv("DOCBASE_EMBEDDING_MODEL", ""),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		VectorStore:      getEnv("DOCBASE_VECTOR_STORE", StoreSQLite),
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		ProcessTimeout:   getEnvDuration("DOCBASE_PROCESS_TIMEOUT", 2*time.Minute),
	}

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("invalid chunking config: overlap %d must be in [0, chunk size %d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	switch cfg.VectorStore {
	case StoreSQLite, StoreQdrant:
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore)
	}
	switch cfg.EmbeddingBackend {
	case EmbedOllama, EmbedOpenAI:
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
	}

	return cfg, nil
}

// VectorDir is where the vector index persists its collection.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectors")
}

// MetadataDir holds the document registry database and content backups.
func (c *Config) MetadataDir() string {
	return filepath.Join(c.DataDir, "metadata")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".docbase")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
