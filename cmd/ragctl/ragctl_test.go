package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragservice/internal/rag"
)

type fakeStack struct {
	docs   []rag.Document
	gotK   int
	ans    *rag.Answer
	err    error
	closed bool
}

func (f *fakeStack) Ingest(_ context.Context, doc rag.Document) (rag.IngestResult, error) {
	f.docs = append(f.docs, doc)
	return rag.IngestResult{DocumentID: rag.DocumentID(doc), ChunkCount: 2, Persisted: 2}, f.err
}

func (f *fakeStack) Answer(_ context.Context, _ string, k int) (*rag.Answer, error) {
	f.gotK = k
	return f.ans, f.err
}

func (f *fakeStack) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, s *fakeStack, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(context.Context) (stack, error) { return s, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some text"), 0o644))

	s := &fakeStack{}
	out, err := run(t, s, "ingest", path, "--id", "notes", "--meta", "team=search", "--meta", "lang=en")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested notes: 2 chunks")
	assert.True(t, s.closed)

	require.Len(t, s.docs, 1)
	assert.Equal(t, "notes", s.docs[0].ID)
	assert.Equal(t, "some text", s.docs[0].Text)
	assert.Equal(t, map[string]any{"team": "search", "lang": "en", "source": path}, s.docs[0].Metadata)
}

func TestIngestCommand_Stdin(t *testing.T) {
	s := &fakeStack{}
	cmd := newRootCmd(func(context.Context) (stack, error) { return s, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("from stdin"))
	cmd.SetArgs([]string{"ingest", "-"})
	require.NoError(t, cmd.Execute())

	require.Len(t, s.docs, 1)
	assert.Equal(t, "from stdin", s.docs[0].Text)
	assert.NotContains(t, s.docs[0].Metadata, "source")
}

func TestIngestCommand_BadMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	s := &fakeStack{}
	_, err := run(t, s, "ingest", path, "--meta", "novalue")
	assert.Error(t, err)
	assert.Empty(t, s.docs)
}

func TestAskCommand(t *testing.T) {
	s := &fakeStack{ans: &rag.Answer{
		Text:    "Paris",
		Sources: []rag.Match{{ID: "geo:0", Score: 0.87, Metadata: map[string]any{"source": "geo.txt"}}},
	}}

	out, err := run(t, s, "ask", "capital of France?", "--top-k", "4")
	require.NoError(t, err)
	assert.Equal(t, 4, s.gotK)
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "[1] geo:0 (0.87)")
	assert.Contains(t, out, "Source: geo.txt")
}

func TestAskCommand_JSON(t *testing.T) {
	s := &fakeStack{ans: &rag.Answer{Text: "I don't know"}}

	out, err := run(t, s, "ask", "anything", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "I don't know", got["answer"])
}

func TestAskCommand_Error(t *testing.T) {
	s := &fakeStack{err: errors.New("index down")}
	_, err := run(t, s, "ask", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index down")
	assert.True(t, s.closed)
}
