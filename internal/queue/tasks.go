package queue

const (
	TypeDocumentIngest = "document:ingest"
)

type DocumentIngestPayload struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
