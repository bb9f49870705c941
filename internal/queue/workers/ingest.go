package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ragservice/internal/queue"
	"github.com/nikhilbhutani/ragservice/internal/rag"
)

type Ingester interface {
	Ingest(ctx context.Context, doc rag.Document) (rag.IngestResult, error)
}

// IngestWorker runs queued documents through the ingestion pipeline.
type IngestWorker struct {
	ingester Ingester
}

func NewIngestWorker(ingester Ingester) *IngestWorker {
	return &IngestWorker{ingester: ingester}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	slog.Info("ingesting document", "document_id", payload.DocumentID)

	res, err := w.ingester.Ingest(ctx, rag.Document{
		ID:       payload.DocumentID,
		Text:     payload.Text,
		Metadata: payload.Metadata,
	})
	if err != nil {
		if errors.Is(err, rag.ErrInvalidInput) || errors.Is(err, rag.ErrInvalidConfiguration) {
			return fmt.Errorf("ingest %s: %w: %w", payload.DocumentID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("ingest %s: %w", payload.DocumentID, err)
	}

	slog.Info("document ingested from queue", "document_id", res.DocumentID, "chunks", res.ChunkCount)
	return nil
}
