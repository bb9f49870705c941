// Command ragctl ingests documents and asks questions against the configured
// index without going through the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nikhilbhutani/ragservice/internal/app"
	"github.com/nikhilbhutani/ragservice/internal/config"
	"github.com/nikhilbhutani/ragservice/internal/rag"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}

type appStack struct {
	*app.App
}

func (s appStack) Ingest(ctx context.Context, doc rag.Document) (rag.IngestResult, error) {
	return s.Ingester.Ingest(ctx, doc)
}

func (s appStack) Answer(ctx context.Context, question string, k int) (*rag.Answer, error) {
	return s.Orchestrator.Answer(ctx, question, k)
}

func openApp(ctx context.Context) (stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return appStack{a}, nil
}
