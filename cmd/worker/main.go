package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ragservice/internal/app"
	"github.com/nikhilbhutani/ragservice/internal/config"
	"github.com/nikhilbhutani/ragservice/internal/queue"
	"github.com/nikhilbhutani/ragservice/internal/queue/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	stack, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialise rag stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	concurrency := 10
	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	ingestWorker := workers.NewIngestWorker(stack.Ingester)
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
