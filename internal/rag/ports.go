package rag

import "context"

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex persists chunk vectors and answers similarity queries.
// Query returns at most k matches ordered by descending score.
type VectorIndex interface {
	Upsert(ctx context.Context, rec Record) error
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Generator produces an answer to question conditioned on context.
type Generator interface {
	Generate(ctx context.Context, question, context string) (string, error)
}

type Document struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	TokenCount int
	Metadata   map[string]any
}

type Record struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Vector     []float32
	TokenCount int
	Metadata   map[string]any
}

type Match struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

type Answer struct {
	Text    string  `json:"answer"`
	Sources []Match `json:"sources"`
}

type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Persisted  int    `json:"persisted"`
}
