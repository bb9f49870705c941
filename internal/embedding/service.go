package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/nikhilbhutani/ragservice/internal/llm"
)

const batchSize = 100

// Service produces embeddings through the LLM gateway. It satisfies rag.Embedder.
type Service struct {
	gateway llm.Gateway
	model   string
	limiter *rate.Limiter
}

type Option func(*Service)

// WithRateLimit caps embedding calls at rps requests per second. rps <= 0
// leaves calls unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Service) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewService(gw llm.Gateway, model string, opts ...Option) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	s := &Service{gateway: gw, model: model}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Model() string { return s.model }

// EmbedBatch embeds texts in provider calls of at most 100 inputs each.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("embed rate limit: %w", err)
			}
		}

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Model: s.model,
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d inputs", i/batchSize, len(resp.Embeddings), end-i)
		}

		allEmbeddings = append(allEmbeddings, resp.Embeddings...)
	}

	return allEmbeddings, nil
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}
