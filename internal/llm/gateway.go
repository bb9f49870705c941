package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nikhilbhutani/ragservice/internal/config"
)

type gateway struct {
	providers         map[string]Provider
	defaultProvider   string
	fallbackProvider  string
	embeddingProvider string
	maxRetries        int
	backoff           time.Duration
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := newGateway(cfg, nil)

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		g.providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}

	return g
}

// NewGatewayWithProviders builds a gateway over explicit providers, keyed by Name().
func NewGatewayWithProviders(cfg config.LLMConfig, providers ...Provider) Gateway {
	return newGateway(cfg, providers)
}

func newGateway(cfg config.LLMConfig, providers []Provider) *gateway {
	g := &gateway{
		providers:         make(map[string]Provider),
		defaultProvider:   cfg.DefaultProvider,
		fallbackProvider:  cfg.FallbackProvider,
		embeddingProvider: cfg.EmbeddingProvider,
		maxRetries:        cfg.MaxRetries,
		backoff:           cfg.RetryBackoff,
	}
	if g.embeddingProvider == "" {
		g.embeddingProvider = g.defaultProvider
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && ctx.Err() == nil && g.fallbackProvider != "" && g.fallbackProvider != providerName {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		return g.chatWithRetry(ctx, g.fallbackProvider, req)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}
	return withRetry(ctx, g, providerName, func() (*ChatResponse, error) {
		return p.ChatCompletion(ctx, req)
	})
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.embeddingProvider
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}
	return withRetry(ctx, g, providerName, func() (*EmbeddingResponse, error) {
		return p.GenerateEmbedding(ctx, req)
	})
}

// withRetry retries call up to g.maxRetries times with quadratic backoff.
func withRetry[T any](ctx context.Context, g *gateway, providerName string, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * g.backoff
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying LLM call", "provider", providerName, "attempt", attempt)
		}

		resp, err := call()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if g.maxRetries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("all retries exhausted for %s: %w", providerName, lastErr)
}

func (g *gateway) ListModels() []ModelInfo {
	var models []ModelInfo
	for _, p := range g.providers {
		for _, m := range p.Models() {
			models = append(models, ModelInfo{Provider: p.Name(), Model: m})
		}
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Model < models[j].Model
	})
	return models
}
