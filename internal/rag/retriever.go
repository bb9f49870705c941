package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Retriever runs the embed-then-search half of a query.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
}

func NewRetriever(embedder Embedder, index VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to k matches for query in the order the index ranked
// them. Failures are *StageError values wrapped with ErrRetrievalFailed.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Match, error) {
	slog.Debug("rag stage", "stage", "embedding")
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, stageErr(StageEmbedding, fmt.Errorf("embed query: %w", err)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("rag stage", "stage", "searching", "top_k", k)
	matches, err := r.index.Query(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, stageErr(StageIndex, fmt.Errorf("similarity search: %w", err)))
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
