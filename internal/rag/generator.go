package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/ragservice/internal/llm"
)

const answerPrompt = `Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.`

// LLMGenerator implements Generator on top of the LLM gateway.
type LLMGenerator struct {
	gateway  llm.Gateway
	provider string
	model    string
}

func NewLLMGenerator(gw llm.Gateway, provider, model string) *LLMGenerator {
	return &LLMGenerator{gateway: gw, provider: provider, model: model}
}

func (g *LLMGenerator) Generate(ctx context.Context, question, contextText string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: answerPrompt},
		{Role: "user", Content: fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nAnswer:", contextText, question)},
	}

	resp, err := g.gateway.Chat(ctx, llm.ChatRequest{
		Provider: g.provider,
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	slog.Debug("answer generated",
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens,
		"cost_usd", resp.CostUSD,
		"latency_ms", resp.LatencyMs,
	)
	return strings.TrimSpace(resp.Content), nil
}
