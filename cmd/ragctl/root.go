package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

type stack interface {
	Ingest(ctx context.Context, doc rag.Document) (rag.IngestResult, error)
	Answer(ctx context.Context, question string, k int) (*rag.Answer, error)
	Close() error
}

type opener func(ctx context.Context) (stack, error)

func newRootCmd(open opener) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Ingest documents and ask questions against the RAG index",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.SetOut(os.Stdout)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline stages to stderr")

	root.AddCommand(newIngestCmd(open), newAskCmd(open))
	return root
}

// withStack opens the stack for one command run and cancels on SIGINT/SIGTERM.
func withStack(cmd *cobra.Command, open opener, fn func(ctx context.Context, s stack) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}
