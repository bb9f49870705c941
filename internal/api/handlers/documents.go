package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/ragservice/internal/queue"
	"github.com/nikhilbhutani/ragservice/internal/rag"
)

type Ingester interface {
	Ingest(ctx context.Context, doc rag.Document) (rag.IngestResult, error)
}

type Enqueuer interface {
	EnqueueDocumentIngest(ctx context.Context, payload queue.DocumentIngestPayload) error
}

type DocumentHandler struct {
	ingester Ingester
	queue    Enqueuer
}

// NewDocumentHandler serves synchronous ingestion and, when q is non-nil,
// queued ingestion.
func NewDocumentHandler(ingester Ingester, q Enqueuer) *DocumentHandler {
	return &DocumentHandler{ingester: ingester, queue: q}
}

type documentRequest struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (req documentRequest) document() rag.Document {
	return rag.Document{ID: req.ID, Text: req.Text, Metadata: req.Metadata}
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (documentRequest, bool) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, r, "text is required")
		return req, false
	}
	return req, true
}

func (h *DocumentHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocument(w, r)
	if !ok {
		return
	}

	res, err := h.ingester.Ingest(r.Context(), req.document())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"document_id":  res.DocumentID,
		"chunks_added": res.ChunkCount,
	})
}

func (h *DocumentHandler) AddAsync(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": errorBody{Code: "queue_unavailable", Message: "async ingestion is not configured"},
		})
		return
	}

	req, ok := decodeDocument(w, r)
	if !ok {
		return
	}

	doc := req.document()
	docID := rag.DocumentID(doc)
	err := h.queue.EnqueueDocumentIngest(r.Context(), queue.DocumentIngestPayload{
		DocumentID: docID,
		Text:       doc.Text,
		Metadata:   doc.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "queued",
		"document_id": docID,
	})
}
