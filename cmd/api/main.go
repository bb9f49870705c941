package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/ragservice/internal/api"
	"github.com/nikhilbhutani/ragservice/internal/app"
	"github.com/nikhilbhutani/ragservice/internal/config"
	"github.com/nikhilbhutani/ragservice/internal/database"
	"github.com/nikhilbhutani/ragservice/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	stack, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise rag stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	svc := api.Services{
		Ingester: stack.Ingester,
		Answerer: stack.Orchestrator,
		Checks:   stack.Checks(),
		MaxTopK:  cfg.RAG.MaxTopK,
	}

	// Async ingestion is optional; without Redis the endpoint answers 503.
	rdb := database.NewRedis(cfg.Redis)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without async ingestion", "error", err)
	} else {
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		svc.Queue = qc
		svc.Checks["queue"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	defer rdb.Close()

	router := api.NewRouter(cfg.Server, svc)
	handler := router.Setup()

	done := make(chan struct{})
	defer close(done)
	go router.Limiter().Run(done)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
