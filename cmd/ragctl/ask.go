package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

func newAskCmd(open opener) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, open, func(ctx context.Context, s stack) error {
				ans, err := s.Answer(ctx, args[0], topK)
				if err != nil {
					return fmt.Errorf("ask failed: %w", err)
				}
				if asJSON {
					return printAnswerJSON(cmd, ans)
				}
				printAnswer(cmd, ans)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to retrieve (default from RAG_TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	return cmd
}

func printAnswerJSON(cmd *cobra.Command, ans *rag.Answer) error {
	data, err := json.MarshalIndent(ans, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printAnswer(cmd *cobra.Command, ans *rag.Answer) {
	cmd.Println(ans.Text)
	if len(ans.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, m := range ans.Sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, m.ID, m.Score)
		if src, ok := m.Metadata["source"]; ok {
			cmd.Printf("      Source: %v\n", src)
		}
	}
}
