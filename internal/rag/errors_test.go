package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
)

func TestCode(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{chunker.ErrInvalidConfiguration, "invalid_configuration"},
		{fmt.Errorf("%w: empty", ErrInvalidInput), "invalid_input"},
		{stageErr(StageEmbedding, cause), "embedding_unavailable"},
		{stageErr(StageIndex, cause), "index_unavailable"},
		{stageErr(StageGeneration, cause), "generation_unavailable"},
		{&IngestError{Persisted: 1, Err: stageErr(StageIndex, cause)}, "partial_ingestion"},
		{&IngestError{Persisted: 0, Err: stageErr(StageIndex, cause)}, "index_unavailable"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{cause, "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), "%v", tt.err)
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("503 from provider")
	err := stageErr(StageEmbedding, cause)

	assert.Equal(t, "embedding unavailable: 503 from provider", err.Error())
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrIndexUnavailable)
}

func TestIngestError(t *testing.T) {
	err := &IngestError{DocumentID: "d", Total: 3, Persisted: 2, Err: errors.New("x")}
	assert.Equal(t, "ingest document d: 2 of 3 chunks persisted: x", err.Error())
	assert.ErrorIs(t, err, ErrPartialIngestion)
}
