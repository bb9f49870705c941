// Package app assembles the RAG stack from configuration. The HTTP server,
// the queue worker and the CLI all start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ragservice/internal/api/handlers"
	"github.com/nikhilbhutani/ragservice/internal/cache"
	"github.com/nikhilbhutani/ragservice/internal/config"
	"github.com/nikhilbhutani/ragservice/internal/database"
	"github.com/nikhilbhutani/ragservice/internal/embedding"
	"github.com/nikhilbhutani/ragservice/internal/llm"
	"github.com/nikhilbhutani/ragservice/internal/rag"
	"github.com/nikhilbhutani/ragservice/internal/vectorstore"
)

type App struct {
	Config       *config.Config
	Gateway      llm.Gateway
	Store        vectorstore.Store
	Ingester     *rag.Ingester
	Orchestrator *rag.Orchestrator

	db    *pgxpool.Pool
	redis *redis.Client
}

// New validates cfg, connects the configured index and builds the pipeline.
// The index is created if it does not exist yet.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return NewWithGateway(ctx, cfg, llm.NewGateway(cfg.LLM))
}

// NewWithGateway is New with an explicit LLM gateway.
func NewWithGateway(ctx context.Context, cfg *config.Config, gw llm.Gateway) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrInvalidConfiguration, err)
	}

	a := &App{Config: cfg, Gateway: gw}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	if err := store.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	embedder := a.embedder(ctx)

	a.Ingester, err = rag.NewIngester(embedder, store, rag.IngesterOptions{
		Chunking:    cfg.ChunkOptions(),
		Concurrency: cfg.RAG.IngestConcurrency,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	gen := rag.NewLLMGenerator(a.Gateway, cfg.LLM.DefaultProvider, cfg.LLM.DefaultModel)
	a.Orchestrator = rag.NewOrchestrator(embedder, store, gen, rag.OrchestratorOptions{
		TopK:            cfg.RAG.TopK,
		MaxTopK:         cfg.RAG.MaxTopK,
		MaxContextChars: cfg.RAG.MaxContextChars,
	})

	slog.Info("rag stack ready",
		"index_backend", cfg.Index.Backend,
		"index", cfg.Index.Name,
		"provider", cfg.LLM.DefaultProvider,
		"embedding_model", cfg.RAG.EmbeddingModel,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (vectorstore.Store, error) {
	cfg := a.Config
	switch cfg.Index.Backend {
	case config.IndexBackendPgVector:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
		}
		a.db = pool
		return vectorstore.NewPgVectorStore(pool, cfg.Index.Name, cfg.Index.Dimension), nil
	case config.IndexBackendQdrant:
		store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:        cfg.Index.QdrantURL,
			APIKey:     cfg.Index.QdrantAPIKey,
			Collection: cfg.Index.Name,
			Dimension:  cfg.Index.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
		}
		return store, nil
	case config.IndexBackendMemory:
		slog.Warn("using in-memory vector index; data is lost on exit")
		return vectorstore.NewMemoryStore(cfg.Index.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", rag.ErrInvalidConfiguration, cfg.Index.Backend)
	}
}

// embedder returns the embedding service, wrapped in the Redis cache when a
// TTL is configured and Redis answers.
func (a *App) embedder(ctx context.Context) rag.Embedder {
	cfg := a.Config
	svc := embedding.NewService(a.Gateway, cfg.RAG.EmbeddingModel,
		embedding.WithRateLimit(cfg.RAG.EmbedRPS, cfg.RAG.EmbedBurst))

	if cfg.RAG.EmbedCacheTTL <= 0 {
		return svc
	}

	rdb := database.NewRedis(cfg.Redis)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without embedding cache", "error", err)
		rdb.Close()
		return svc
	}
	a.redis = rdb
	return embedding.NewCachedEmbedder(svc, cache.NewCache(rdb), cfg.RAG.EmbeddingModel, cfg.RAG.EmbedCacheTTL)
}

// Checks returns readiness probes for the dependencies this App holds.
func (a *App) Checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if a.db != nil {
		checks["database"] = a.db.Ping
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	} else if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
