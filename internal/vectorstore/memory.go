package vectorstore

import (
	"context"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

// MemoryStore keeps records in process memory. Records are ranked by cosine
// similarity; equal scores keep first-insertion order.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	records   map[string]rag.Record
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		records:   make(map[string]rag.Record),
	}
}

func (s *MemoryStore) EnsureIndex(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Upsert(ctx context.Context, rec rag.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDimension(s.dimension, rec.Vector); err != nil {
		return err
	}

	rec.Vector = append([]float32(nil), rec.Vector...)
	rec.Metadata = maps.Clone(rec.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]rag.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []rag.Match{}, nil
	}

	s.mu.RLock()
	matches := make([]rag.Match, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		matches = append(matches, rag.Match{
			ID:         rec.ID,
			DocumentID: rec.DocumentID,
			ChunkIndex: rec.ChunkIndex,
			Content:    rec.Content,
			Score:      cosine(vector, rec.Vector),
			Metadata:   maps.Clone(rec.Metadata),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ Store = (*MemoryStore)(nil)
