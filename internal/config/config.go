package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
)

const (
	IndexBackendPgVector = "pgvector"
	IndexBackendQdrant   = "qdrant"
	IndexBackendMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Index    IndexConfig
	RAG      RAGConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	OpenAIKey         string
	OpenAIBaseURL     string
	AnthropicKey      string
	OllamaURL         string
	DefaultProvider   string
	DefaultModel      string
	FallbackProvider  string
	EmbeddingProvider string
	MaxRetries        int
	RetryBackoff      time.Duration
}

type IndexConfig struct {
	Backend      string // pgvector, qdrant or memory
	Name         string
	Dimension    int
	QdrantURL    string
	QdrantAPIKey string
}

type RAGConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	MaxTopK           int // upper bound for a per-request k
	MaxContextChars   int
	IngestConcurrency int
	EmbeddingModel    string
	EmbedRPS          float64
	EmbedBurst        int
	EmbedCacheTTL     time.Duration // 0 disables the Redis embedding cache
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	floatVar := func(key string, fallback float64) float64 {
		v, err := getEnvFloat(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getEnvDuration(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           intVar("SERVER_PORT", 8000),
			RequestTimeout: durationVar("REQUEST_TIMEOUT", 60*time.Second),
			RateLimitRPS:   floatVar("RATE_LIMIT_RPS", 100),
			RateLimitBurst: intVar("RATE_LIMIT_BURST", 200),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: intVar("DB_MAX_CONNS", 20),
			MinConns: intVar("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			AnthropicKey:      getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:         getEnv("OLLAMA_URL", ""),
			DefaultProvider:   getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:      getEnv("LLM_DEFAULT_MODEL", "gpt-3.5-turbo"),
			FallbackProvider:  getEnv("LLM_FALLBACK_PROVIDER", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			MaxRetries:        intVar("LLM_MAX_RETRIES", 2),
			RetryBackoff:      durationVar("LLM_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Index: IndexConfig{
			Backend:      strings.ToLower(getEnv("INDEX_BACKEND", IndexBackendPgVector)),
			Name:         getEnv("INDEX_NAME", "rag-index"),
			Dimension:    intVar("INDEX_DIMENSION", 1536),
			QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6334"),
			QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
		},
		RAG: RAGConfig{
			ChunkSize:         intVar("CHUNK_SIZE", 1000),
			ChunkOverlap:      intVar("CHUNK_OVERLAP", 200),
			TopK:              intVar("RAG_TOP_K", 3),
			MaxTopK:           intVar("RAG_MAX_TOP_K", 50),
			MaxContextChars:   intVar("RAG_MAX_CONTEXT_CHARS", 12000),
			IngestConcurrency: intVar("INGEST_CONCURRENCY", 4),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbedRPS:          floatVar("EMBED_RPS", 0),
			EmbedBurst:        intVar("EMBED_BURST", 1),
			EmbedCacheTTL:     durationVar("EMBED_CACHE_TTL", 0),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ChunkOptions() chunker.Options {
	return chunker.Options{ChunkSize: c.RAG.ChunkSize, ChunkOverlap: c.RAG.ChunkOverlap}
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	var problems []error

	if err := c.ChunkOptions().Validate(); err != nil {
		problems = append(problems, err)
	}
	if c.RAG.TopK <= 0 {
		problems = append(problems, fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK))
	}
	if c.RAG.MaxTopK <= 0 {
		problems = append(problems, fmt.Errorf("RAG_MAX_TOP_K must be positive, got %d", c.RAG.MaxTopK))
	} else if c.RAG.TopK > c.RAG.MaxTopK {
		problems = append(problems, fmt.Errorf("RAG_TOP_K %d exceeds RAG_MAX_TOP_K %d", c.RAG.TopK, c.RAG.MaxTopK))
	}
	if c.RAG.IngestConcurrency <= 0 {
		problems = append(problems, fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", c.RAG.IngestConcurrency))
	}
	if c.RAG.MaxContextChars < 0 {
		problems = append(problems, fmt.Errorf("RAG_MAX_CONTEXT_CHARS must not be negative, got %d", c.RAG.MaxContextChars))
	}
	if c.Index.Dimension <= 0 {
		problems = append(problems, fmt.Errorf("INDEX_DIMENSION must be positive, got %d", c.Index.Dimension))
	}
	if c.Index.Name == "" {
		problems = append(problems, errors.New("INDEX_NAME must not be empty"))
	}

	var missing []string
	switch c.Index.Backend {
	case IndexBackendPgVector:
		if c.Database.URL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case IndexBackendQdrant:
		if c.Index.QdrantURL == "" {
			missing = append(missing, "QDRANT_URL")
		}
	case IndexBackendMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown INDEX_BACKEND %q", c.Index.Backend))
	}
	if len(missing) > 0 {
		problems = append(problems, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", ")))
	}

	return errors.Join(problems...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
