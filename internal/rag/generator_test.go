package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragservice/internal/config"
	"github.com/nikhilbhutani/ragservice/internal/llm"
)

type recordingProvider struct {
	req llm.ChatRequest
	err error
}

func (p *recordingProvider) Name() string     { return "openai" }
func (p *recordingProvider) Models() []string { return nil }

func (p *recordingProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.req = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Provider: "openai", Model: req.Model, Content: "\n  Paris.  "}, nil
}

func (p *recordingProvider) GenerateEmbedding(context.Context, llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not used")
}

func TestLLMGenerator_Prompt(t *testing.T) {
	p := &recordingProvider{}
	gw := llm.NewGatewayWithProviders(config.LLMConfig{DefaultProvider: "openai"}, p)
	gen := NewLLMGenerator(gw, "openai", "gpt-3.5-turbo")

	answer, err := gen.Generate(context.Background(), "Capital of France?", "France's capital is Paris.")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	assert.Equal(t, "gpt-3.5-turbo", p.req.Model)
	assert.Zero(t, p.req.Temperature)
	require.Len(t, p.req.Messages, 2)
	assert.Equal(t, "system", p.req.Messages[0].Role)
	assert.Contains(t, p.req.Messages[0].Content, "just say that you don't know")
	assert.Equal(t, "Context: France's capital is Paris.\n\nQuestion: Capital of France?\n\nAnswer:", p.req.Messages[1].Content)
}

func TestLLMGenerator_Error(t *testing.T) {
	boom := errors.New("quota")
	gw := llm.NewGatewayWithProviders(config.LLMConfig{DefaultProvider: "openai"}, &recordingProvider{err: boom})

	_, err := NewLLMGenerator(gw, "", "m").Generate(context.Background(), "q", "")
	assert.ErrorIs(t, err, boom)
}
