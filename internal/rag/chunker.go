package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"

	"github.com/nikhilbhutani/ragservice/pkg/chunker"
	"github.com/nikhilbhutani/ragservice/pkg/tokenizer"
)

// DocumentID returns doc.ID when set, otherwise an id derived from the text so
// identical content always maps to the same records.
func DocumentID(doc Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	sum := sha256.Sum256([]byte(doc.Text))
	return "doc-" + hex.EncodeToString(sum[:])[:32]
}

// ChunkID is the record identifier of the index-th chunk of a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// ChunkDocument splits doc into chunks, each carrying its own copy of the
// document metadata.
func ChunkDocument(docID string, doc Document, opts chunker.Options) ([]Chunk, error) {
	windows, err := chunker.Chunk(doc.Text, opts)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		meta := maps.Clone(doc.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		chunks[i] = Chunk{
			ID:         ChunkID(docID, w.Index),
			DocumentID: docID,
			Index:      w.Index,
			Content:    w.Content,
			TokenCount: tokenizer.CountTokens(w.Content),
			Metadata:   meta,
		}
	}
	return chunks, nil
}
