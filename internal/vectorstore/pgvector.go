package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

// PgVectorStore keeps one row per chunk in a Postgres table with a pgvector
// column and an HNSW cosine index. The store owns the pool.
type PgVectorStore struct {
	db        *pgxpool.Pool
	name      string
	table     string // sanitized identifier
	dimension int
}

func NewPgVectorStore(db *pgxpool.Pool, name string, dimension int) *PgVectorStore {
	return &PgVectorStore{
		db:        db,
		name:      name,
		table:     pgx.Identifier{name}.Sanitize(),
		dimension: dimension,
	}
}

func (s *PgVectorStore) EnsureIndex(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			token_count INT NOT NULL DEFAULT 0,
			metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{s.name + "_embedding_idx"}.Sanitize(), s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
			pgx.Identifier{s.name + "_document_idx"}.Sanitize(), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index %s: %w", s.name, err)
		}
	}

	// atttypmod of a vector column is its dimension.
	var existing int
	err := s.db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		s.table,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("read index dimension: %w", err)
	}
	if existing != s.dimension {
		return fmt.Errorf("index %s: %w: table has %d, configured %d", s.name, ErrDimensionMismatch, existing, s.dimension)
	}

	slog.Info("vector index ready", "backend", "pgvector", "name", s.name, "dimension", s.dimension)
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, rec rag.Record) error {
	if err := checkDimension(s.dimension, rec.Vector); err != nil {
		return err
	}

	meta := rec.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	_, err := s.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, document_id, chunk_index, content, embedding, token_count, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   document_id = EXCLUDED.document_id,
		   chunk_index = EXCLUDED.chunk_index,
		   content     = EXCLUDED.content,
		   embedding   = EXCLUDED.embedding,
		   token_count = EXCLUDED.token_count,
		   metadata    = EXCLUDED.metadata,
		   updated_at  = now()`, s.table),
		rec.ID, rec.DocumentID, rec.ChunkIndex, rec.Content, pgvector.NewVector(rec.Vector), rec.TokenCount, meta,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PgVectorStore) Query(ctx context.Context, vector []float32, k int) ([]rag.Match, error) {
	if err := checkDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []rag.Match{}, nil
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT id, document_id, chunk_index, content, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, s.table),
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	matches := make([]rag.Match, 0, min(k, 64))
	for rows.Next() {
		var m rag.Match
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.ChunkIndex, &m.Content, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return matches, nil
}

func (s *PgVectorStore) Close() error {
	s.db.Close()
	return nil
}

var _ Store = (*PgVectorStore)(nil)
