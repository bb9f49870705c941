package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

// Payload keys written for every point. Caller metadata lives under payloadMetadata.
const (
	payloadChunkID    = "chunk_id"
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"
	payloadTokenCount = "token_count"
	payloadMetadata   = "metadata"
)

type QdrantConfig struct {
	// URL is the Qdrant gRPC address, e.g. "http://localhost:6334".
	URL        string
	APIKey     string
	Collection string
	Dimension  int
}

// QdrantStore keeps chunks as points of one collection. Qdrant point ids must
// be UUIDs or integers, so each chunk id is mapped to a name-based UUID and
// the original id is kept in the payload.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	port := 6334
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

func (s *QdrantStore) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}

	if !exists {
		slog.Info("creating vector index", "backend", "qdrant", "name", s.collection, "dimension", s.dimension)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("describe collection %s: %w", s.collection, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && int(size) != s.dimension {
		return fmt.Errorf("collection %s: %w: has %d, configured %d", s.collection, ErrDimensionMismatch, size, s.dimension)
	}

	slog.Info("vector index ready", "backend", "qdrant", "name", s.collection, "dimension", s.dimension)
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, rec rag.Record) error {
	if err := checkDimension(s.dimension, rec.Vector); err != nil {
		return err
	}

	payload, err := qdrant.TryValueMap(recordPayload(rec))
	if err != nil {
		return fmt.Errorf("encode payload %s: %w", rec.ID, err)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(PointID(rec.ID)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]rag.Match, error) {
	if err := checkDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []rag.Match{}, nil
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	matches := make([]rag.Match, 0, len(points))
	for _, p := range points {
		m := matchFromPayload(p.GetPayload())
		m.Score = float64(p.GetScore())
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// PointID maps a chunk id to the UUID used as its Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func recordPayload(rec rag.Record) map[string]any {
	meta := make(map[string]any, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	return map[string]any{
		payloadChunkID:    rec.ID,
		payloadDocumentID: rec.DocumentID,
		payloadChunkIndex: int64(rec.ChunkIndex),
		payloadText:       rec.Content,
		payloadTokenCount: int64(rec.TokenCount),
		payloadMetadata:   meta,
	}
}

func matchFromPayload(payload map[string]*qdrant.Value) rag.Match {
	m := rag.Match{Metadata: map[string]any{}}
	m.ID = payload[payloadChunkID].GetStringValue()
	m.DocumentID = payload[payloadDocumentID].GetStringValue()
	m.ChunkIndex = int(payload[payloadChunkIndex].GetIntegerValue())
	m.Content = payload[payloadText].GetStringValue()
	for k, v := range payload[payloadMetadata].GetStructValue().GetFields() {
		m.Metadata[k] = extractValue(v)
	}
	return m
}

// extractValue converts a Qdrant payload value back to a Go value.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}

	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(val.StructValue.GetFields()))
		for k, f := range val.StructValue.GetFields() {
			out[k] = extractValue(f)
		}
		return out
	case *qdrant.Value_ListValue:
		items := val.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = extractValue(item)
		}
		return out
	default:
		return nil
	}
}

var _ Store = (*QdrantStore)(nil)
