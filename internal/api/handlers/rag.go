package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

const previewRunes = 200

type Answerer interface {
	Answer(ctx context.Context, question string, k int) (*rag.Answer, error)
}

type RAGHandler struct {
	answerer Answerer
	maxTopK  int
}

// NewRAGHandler rejects requests asking for more than maxTopK chunks.
// maxTopK <= 0 uses rag.DefaultMaxTopK.
func NewRAGHandler(a Answerer, maxTopK int) *RAGHandler {
	if maxTopK <= 0 {
		maxTopK = rag.DefaultMaxTopK
	}
	return &RAGHandler{answerer: a, maxTopK: maxTopK}
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type sourceDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(w, r, "question cannot be empty")
		return
	}
	if req.TopK < 0 || req.TopK > h.maxTopK {
		badRequest(w, r, fmt.Sprintf("top_k must be between 0 and %d", h.maxTopK))
		return
	}

	ans, err := h.answerer.Answer(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sources := make([]sourceDocument, 0, len(ans.Sources))
	for _, m := range ans.Sources {
		meta := m.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		sources = append(sources, sourceDocument{
			Content:  preview(m.Content),
			Metadata: meta,
			Score:    m.Score,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":           ans.Text,
		"source_documents": sources,
	})
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes) + "..."
}
