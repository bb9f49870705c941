package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Embedder is the single-text embedding capability CachedEmbedder decorates.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorCache is the subset of cache.Cache used here.
type VectorCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedEmbedder memoises vectors by model and text hash. Cache failures are
// logged and treated as misses, so the wrapped embedder stays the source of truth.
type CachedEmbedder struct {
	next  Embedder
	cache VectorCache
	model string
	ttl   time.Duration
}

func NewCachedEmbedder(next Embedder, cache VectorCache, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model, ttl: ttl}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	var vec []float32
	if err := c.cache.Get(ctx, key, &vec); err == nil && len(vec) > 0 {
		return vec, nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, vec, c.ttl); err != nil {
		slog.Debug("embedding cache write failed", "key", key, "error", err)
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}
