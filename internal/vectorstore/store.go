// Package vectorstore holds the vector index backends behind rag.VectorIndex.
// Every backend uses cosine similarity and a fixed dimension chosen at startup.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Store is a rag.VectorIndex with an explicit lifecycle.
type Store interface {
	rag.VectorIndex

	// EnsureIndex creates the index if it does not exist. Repeated calls are no-ops.
	EnsureIndex(ctx context.Context) error
	Close() error
}

func checkDimension(want int, vec []float32) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, want, len(vec))
	}
	return nil
}
