package rag

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
)

func newTestIngester(t *testing.T, emb Embedder, idx VectorIndex, concurrency int) *Ingester {
	t.Helper()
	in, err := NewIngester(emb, idx, IngesterOptions{Chunking: chunker.DefaultOptions(), Concurrency: concurrency})
	require.NoError(t, err)
	return in
}

func TestIngest_ChunksEmbedsAndUpsertsEachOnce(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := newFakeIndex()
	in := newTestIngester(t, emb, idx, 4)

	res, err := in.Ingest(context.Background(), Document{
		ID:       "doc-a",
		Text:     strings.Repeat("A", 2500),
		Metadata: map[string]any{"source": "a.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, IngestResult{DocumentID: "doc-a", ChunkCount: 3, Persisted: 3}, res)
	assert.Equal(t, 3, emb.callCount())

	wantLens := []int{1000, 1000, 900}
	for i, want := range wantLens {
		rec, ok := idx.records[ChunkID("doc-a", i)]
		require.True(t, ok, "chunk %d missing", i)
		assert.Equal(t, want, utf8.RuneCountInString(rec.Content))
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, "doc-a", rec.DocumentID)
		assert.Equal(t, "a.txt", rec.Metadata["source"])
		assert.Equal(t, 1, idx.upserts[rec.ID])
	}
}

func TestIngest_ReingestIsIdempotent(t *testing.T) {
	idx := newFakeIndex()
	in := newTestIngester(t, &fakeEmbedder{}, idx, 2)
	doc := Document{Text: strings.Repeat("lorem ipsum ", 300)}

	first, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)
	n := idx.count()

	second, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, n, idx.count())
}

func TestIngest_MetadataIsCopiedPerChunk(t *testing.T) {
	idx := newFakeIndex()
	in := newTestIngester(t, &fakeEmbedder{}, idx, 1)
	meta := map[string]any{"k": "v"}

	_, err := in.Ingest(context.Background(), Document{ID: "d", Text: strings.Repeat("x", 1500), Metadata: meta})
	require.NoError(t, err)

	idx.records["d:0"].Metadata["k"] = "changed"
	assert.Equal(t, "v", idx.records["d:1"].Metadata["k"])
	assert.Equal(t, "v", meta["k"])
}

func TestIngest_EmptyTextMakesNoCalls(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := newFakeIndex()
	in := newTestIngester(t, emb, idx, 4)

	for _, text := range []string{"", "  \n\t"} {
		_, err := in.Ingest(context.Background(), Document{Text: text})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, emb.callCount())
	assert.Zero(t, idx.nUpserts)
}

func TestIngest_PartialFailure(t *testing.T) {
	boom := errors.New("provider down")

	t.Run("embedding", func(t *testing.T) {
		emb := &fakeEmbedder{err: boom, failOn: 2}
		idx := newFakeIndex()
		in := newTestIngester(t, emb, idx, 1)

		res, err := in.Ingest(context.Background(), Document{ID: "d", Text: strings.Repeat("A", 2500)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPartialIngestion)
		assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "partial_ingestion", Code(err))

		var ingestErr *IngestError
		require.ErrorAs(t, err, &ingestErr)
		assert.Equal(t, 1, ingestErr.Persisted)
		assert.Equal(t, 3, ingestErr.Total)
		assert.Equal(t, 1, res.Persisted)

		var stage *StageError
		require.ErrorAs(t, err, &stage)
		assert.Equal(t, StageEmbedding, stage.Stage)

		assert.Equal(t, 2, emb.callCount())
		assert.Equal(t, 1, idx.count())
	})

	t.Run("index", func(t *testing.T) {
		idx := newFakeIndex()
		idx.err, idx.failOn = boom, 3
		in := newTestIngester(t, &fakeEmbedder{}, idx, 1)

		res, err := in.Ingest(context.Background(), Document{ID: "d", Text: strings.Repeat("A", 2500)})
		assert.ErrorIs(t, err, ErrPartialIngestion)
		assert.ErrorIs(t, err, ErrIndexUnavailable)
		assert.Equal(t, 2, res.Persisted)
		assert.Equal(t, 2, idx.count())
	})
}

func TestIngest_FirstChunkFailureIsNotPartial(t *testing.T) {
	boom := errors.New("down")
	idx := newFakeIndex()
	in := newTestIngester(t, &fakeEmbedder{err: boom, failOn: 1}, idx, 1)

	res, err := in.Ingest(context.Background(), Document{ID: "d", Text: strings.Repeat("A", 2500)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialIngestion)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, "embedding_unavailable", Code(err))
	assert.Zero(t, res.Persisted)
	assert.Zero(t, idx.count())
}

func TestIngest_CanceledContext(t *testing.T) {
	emb := &fakeEmbedder{}
	in := newTestIngester(t, emb, newFakeIndex(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Ingest(ctx, Document{Text: "some text"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", Code(err))
	assert.Zero(t, emb.callCount())
}

func TestIngest_CancelAfterLastChunkSucceeds(t *testing.T) {
	doc := Document{Text: strings.Repeat("lorem ipsum ", 300)}
	chunks, err := ChunkDocument(DocumentID(doc), doc, chunker.DefaultOptions())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idx := newFakeIndex()
	idx.onUpsert = func(n int) {
		if n == len(chunks) {
			cancel()
		}
	}
	in := newTestIngester(t, &fakeEmbedder{}, idx, 1)

	res, err := in.Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), res.ChunkCount)
	assert.Equal(t, len(chunks), res.Persisted)
}

func TestIngest_ConcurrencyIsBounded(t *testing.T) {
	var inFlight, peak atomic.Int64
	emb := &fakeEmbedder{onCall: func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	}}
	idx := newFakeIndex()
	in, err := NewIngester(emb, idx, IngesterOptions{
		Chunking:    chunker.Options{ChunkSize: 10, ChunkOverlap: 2},
		Concurrency: 3,
	})
	require.NoError(t, err)

	res, err := in.Ingest(context.Background(), Document{Text: strings.Repeat("abcdefgh", 64)})
	require.NoError(t, err)
	require.Greater(t, res.ChunkCount, 30)
	assert.Equal(t, res.ChunkCount, idx.count())
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Greater(t, peak.Load(), int64(1))
}

func TestNewIngester_Options(t *testing.T) {
	_, err := NewIngester(&fakeEmbedder{}, newFakeIndex(), IngesterOptions{
		Chunking: chunker.Options{ChunkSize: 100, ChunkOverlap: 100},
	})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	in, err := NewIngester(&fakeEmbedder{}, newFakeIndex(), IngesterOptions{})
	require.NoError(t, err)
	assert.Equal(t, chunker.DefaultOptions(), in.opts.Chunking)
	assert.Equal(t, DefaultIngestConcurrency, in.opts.Concurrency)
}
