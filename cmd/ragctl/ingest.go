package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

func newIngestCmd(open opener) *cobra.Command {
	var (
		docID string
		meta  []string
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Chunk, embed and index a text file",
		Long: `Reads FILE (or stdin when FILE is "-"), splits it into overlapping chunks
and upserts one vector per chunk. Re-ingesting the same document id
overwrites its chunks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			metadata, err := parseMeta(meta)
			if err != nil {
				return err
			}
			if args[0] != "-" {
				if _, ok := metadata["source"]; !ok {
					metadata["source"] = args[0]
				}
			}

			return withStack(cmd, open, func(ctx context.Context, s stack) error {
				res, err := s.Ingest(ctx, rag.Document{ID: docID, Text: text, Metadata: metadata})
				if err != nil {
					return fmt.Errorf("ingest failed: %w", err)
				}
				cmd.Printf("ingested %s: %d chunks\n", res.DocumentID, res.ChunkCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&docID, "id", "", "document id (default: content hash)")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as key=value, repeatable")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func parseMeta(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q: want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
