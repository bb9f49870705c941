package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
)

var (
	ErrInvalidConfiguration  = chunker.ErrInvalidConfiguration
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrIndexUnavailable      = errors.New("index unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrPartialIngestion      = errors.New("partial ingestion")

	// ErrRetrievalFailed and ErrGenerationFailed classify Answer failures.
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrGenerationFailed = errors.New("generation failed")
)

// Stage names the external collaborator a failure came from.
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageIndex      Stage = "index"
	StageGeneration Stage = "generation"
)

func (s Stage) sentinel() error {
	switch s {
	case StageEmbedding:
		return ErrEmbeddingUnavailable
	case StageIndex:
		return ErrIndexUnavailable
	case StageGeneration:
		return ErrGenerationUnavailable
	default:
		return nil
	}
}

// StageError wraps a port failure. errors.Is matches both the stage sentinel
// and the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.sentinel(), e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// IngestError reports an aborted ingestion and how many chunks reached the
// index before it stopped. It matches ErrPartialIngestion only when at least
// one chunk was persisted.
type IngestError struct {
	DocumentID string
	Total      int
	Persisted  int
	Err        error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest document %s: %d of %d chunks persisted: %v",
		e.DocumentID, e.Persisted, e.Total, e.Err)
}

func (e *IngestError) Unwrap() []error {
	if e.Persisted > 0 {
		return []error{ErrPartialIngestion, e.Err}
	}
	return []error{e.Err}
}

// Code maps an error chain to a stable identifier for external callers.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrPartialIngestion):
		return "partial_ingestion"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
