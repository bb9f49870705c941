package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTopK    = 3
	DefaultMaxTopK = 50

	contextSeparator = "\n\n"
)

type OrchestratorOptions struct {
	TopK            int // used when Answer is called with k <= 0
	MaxTopK         int // larger k is rejected; <= 0 uses DefaultMaxTopK
	MaxContextChars int // 0 means no limit
}

// Orchestrator answers questions: embed, search, assemble context, generate.
// The stages run strictly in that order and each depends on the previous one.
type Orchestrator struct {
	retriever *Retriever
	generator Generator
	opts      OrchestratorOptions
}

func NewOrchestrator(embedder Embedder, index VectorIndex, gen Generator, opts OrchestratorOptions) *Orchestrator {
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = DefaultMaxTopK
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	opts.TopK = min(opts.TopK, opts.MaxTopK)
	if opts.MaxContextChars < 0 {
		opts.MaxContextChars = 0
	}
	return &Orchestrator{
		retriever: NewRetriever(embedder, index),
		generator: gen,
		opts:      opts,
	}
}

// Answer generates an answer for question from the top-k indexed chunks.
// Finding no matches is not an error: generation still runs with an empty
// context and the answer carries no sources.
func (o *Orchestrator) Answer(ctx context.Context, question string, k int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if k > o.opts.MaxTopK {
		return nil, fmt.Errorf("%w: k %d exceeds maximum %d", ErrInvalidInput, k, o.opts.MaxTopK)
	}
	if k <= 0 {
		k = o.opts.TopK
	}

	matches, err := o.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("rag stage", "stage", "assembling", "matches", len(matches))
	contextText, included := AssembleContext(matches, o.opts.MaxContextChars)
	if dropped := len(matches) - len(included); dropped > 0 {
		slog.Debug("context truncated", "dropped", dropped, "max_chars", o.opts.MaxContextChars)
	}

	slog.Debug("rag stage", "stage", "generating")
	text, err := o.generator.Generate(ctx, question, contextText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, stageErr(StageGeneration, err))
	}

	slog.Info("question answered", "matches", len(matches), "sources", len(included))
	return &Answer{Text: text, Sources: included}, nil
}

// AssembleContext joins match contents in rank order. When maxChars > 0 and
// the whole set does not fit, matches are dropped from the lowest rank up;
// chunk text is never cut. It returns the context and the matches it holds.
func AssembleContext(matches []Match, maxChars int) (string, []Match) {
	included := make([]Match, 0, len(matches))
	var sb strings.Builder
	size := 0

	for _, m := range matches {
		add := utf8.RuneCountInString(m.Content)
		if len(included) > 0 {
			add += len(contextSeparator)
		}
		if maxChars > 0 && size+add > maxChars {
			break
		}
		if len(included) > 0 {
			sb.WriteString(contextSeparator)
		}
		sb.WriteString(m.Content)
		size += add
		included = append(included, m)
	}

	return sb.String(), included
}
