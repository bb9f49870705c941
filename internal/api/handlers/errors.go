package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

type errorBody struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	ChunksPersisted *int   `json:"chunks_persisted,omitempty"`
}

func statusForCode(code string) int {
	switch code {
	case "invalid_configuration", "invalid_input":
		return http.StatusBadRequest
	case "embedding_unavailable", "index_unavailable", "generation_unavailable", "partial_ingestion":
		return http.StatusBadGateway
	case "timeout":
		return http.StatusGatewayTimeout
	case "canceled":
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := rag.Code(err)
	status := statusForCode(code)

	body := errorBody{Code: code, Message: err.Error()}
	var ingestErr *rag.IngestError
	if errors.As(err, &ingestErr) {
		persisted := ingestErr.Persisted
		body.ChunksPersisted = &persisted
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "code", code, "error", err)
	} else {
		slog.Warn("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}

	writeJSON(w, status, map[string]any{"error": body})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, errors.Join(rag.ErrInvalidInput, errors.New(msg)))
}
