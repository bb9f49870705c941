package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
)

const DefaultIngestConcurrency = 4

type IngesterOptions struct {
	Chunking    chunker.Options
	Concurrency int // chunks embedded/upserted in parallel; <= 0 uses DefaultIngestConcurrency
}

// Ingester chunks documents, embeds every chunk and upserts it into the index.
type Ingester struct {
	embedder Embedder
	index    VectorIndex
	opts     IngesterOptions
}

func NewIngester(embedder Embedder, index VectorIndex, opts IngesterOptions) (*Ingester, error) {
	if opts.Chunking == (chunker.Options{}) {
		opts.Chunking = chunker.DefaultOptions()
	}
	if err := opts.Chunking.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultIngestConcurrency
	}
	return &Ingester{embedder: embedder, index: index, opts: opts}, nil
}

// Ingest stores doc as a set of chunk records keyed "<document id>:<index>",
// so ingesting the same document again overwrites its records in place.
//
// The first embedding or upsert failure stops the remaining chunks. Chunks
// already upserted stay in the index; the returned result and *IngestError
// report how many that was.
func (in *Ingester) Ingest(ctx context.Context, doc Document) (IngestResult, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return IngestResult{}, fmt.Errorf("%w: document text is empty", ErrInvalidInput)
	}

	docID := DocumentID(doc)
	chunks, err := ChunkDocument(docID, doc, in.opts.Chunking)
	if err != nil {
		return IngestResult{DocumentID: docID}, err
	}

	result := IngestResult{DocumentID: docID, ChunkCount: len(chunks)}

	var persisted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.Concurrency)

	for _, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := in.storeChunk(gctx, c); err != nil {
				return err
			}
			persisted.Add(1)
			return nil
		})
	}

	err = g.Wait()
	result.Persisted = int(persisted.Load())
	if err == nil && result.Persisted < result.ChunkCount {
		// The parent context was cancelled before every chunk was dispatched.
		err = ctx.Err()
	}

	if err != nil {
		slog.Warn("document ingestion aborted",
			"document_id", docID,
			"chunks", result.ChunkCount,
			"persisted", result.Persisted,
			"error", err,
		)
		return result, &IngestError{
			DocumentID: docID,
			Total:      result.ChunkCount,
			Persisted:  result.Persisted,
			Err:        err,
		}
	}

	slog.Info("document ingested", "document_id", docID, "chunks", result.ChunkCount)
	return result, nil
}

func (in *Ingester) storeChunk(ctx context.Context, c Chunk) error {
	vec, err := in.embedder.Embed(ctx, c.Content)
	if err != nil {
		return stageErr(StageEmbedding, fmt.Errorf("embed chunk %s: %w", c.ID, err))
	}

	err = in.index.Upsert(ctx, Record{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		ChunkIndex: c.Index,
		Content:    c.Content,
		Vector:     vec,
		TokenCount: c.TokenCount,
		Metadata:   c.Metadata,
	})
	if err != nil {
		return stageErr(StageIndex, fmt.Errorf("upsert chunk %s: %w", c.ID, err))
	}
	return nil
}
