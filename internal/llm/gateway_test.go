package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragservice/internal/config"
)

type fakeProvider struct {
	name      string
	chatErrs  []error // consumed one per call; nil entries succeed
	chatCalls int
	embedErr  error
	embedReqs []EmbeddingRequest
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Models() []string { return []string{f.name + "-model"} }

func (f *fakeProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.chatCalls++
	if len(f.chatErrs) > 0 {
		err := f.chatErrs[0]
		f.chatErrs = f.chatErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ChatResponse{Provider: f.name, Model: req.Model, Content: "ok from " + f.name}, nil
}

func (f *fakeProvider) GenerateEmbedding(_ context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	f.embedReqs = append(f.embedReqs, req)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(req.Input))
	for i := range req.Input {
		out[i] = []float32{float32(i)}
	}
	return &EmbeddingResponse{Provider: f.name, Embeddings: out}, nil
}

func TestGateway_ChatRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{name: "openai", chatErrs: []error{errors.New("boom"), nil}}
	gw := NewGatewayWithProviders(config.LLMConfig{DefaultProvider: "openai", MaxRetries: 2}, p)

	resp, err := gw.Chat(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok from openai", resp.Content)
	assert.Equal(t, 2, p.chatCalls)
}

func TestGateway_ChatFallback(t *testing.T) {
	boom := errors.New("boom")
	primary := &fakeProvider{name: "openai", chatErrs: []error{boom}}
	fallback := &fakeProvider{name: "ollama"}
	gw := NewGatewayWithProviders(config.LLMConfig{
		DefaultProvider:  "openai",
		FallbackProvider: "ollama",
	}, primary, fallback)

	resp, err := gw.Chat(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, 1, primary.chatCalls)
}

func TestGateway_ChatNoRetriesReturnsCause(t *testing.T) {
	boom := errors.New("boom")
	p := &fakeProvider{name: "openai", chatErrs: []error{boom}}
	gw := NewGatewayWithProviders(config.LLMConfig{DefaultProvider: "openai"}, p)

	_, err := gw.Chat(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.chatCalls)
}

func TestGateway_EmbedUsesEmbeddingProvider(t *testing.T) {
	chat := &fakeProvider{name: "anthropic"}
	embed := &fakeProvider{name: "openai"}
	gw := NewGatewayWithProviders(config.LLMConfig{
		DefaultProvider:   "anthropic",
		EmbeddingProvider: "openai",
	}, chat, embed)

	resp, err := gw.Embed(context.Background(), EmbeddingRequest{Input: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
	assert.Len(t, embed.embedReqs, 1)
	assert.Empty(t, chat.embedReqs)
}

func TestGateway_UnknownProvider(t *testing.T) {
	gw := NewGatewayWithProviders(config.LLMConfig{DefaultProvider: "missing"})
	_, err := gw.Chat(context.Background(), ChatRequest{})
	assert.ErrorContains(t, err, `provider "missing" not configured`)
}

func TestGateway_ListModelsSorted(t *testing.T) {
	gw := NewGatewayWithProviders(config.LLMConfig{},
		&fakeProvider{name: "openai"}, &fakeProvider{name: "anthropic"})
	models := gw.ListModels()
	require.Len(t, models, 2)
	assert.Equal(t, "anthropic", models[0].Provider)
	assert.Equal(t, "openai", models[1].Provider)
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.0005+0.0015, CalculateCost("gpt-3.5-turbo", 1000, 1000), 1e-12)
	assert.Zero(t, CalculateCost("llama3", 1000, 1000))
}
