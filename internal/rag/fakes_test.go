package rag

import (
	"context"
	"sync"
)

// fakeEmbedder returns a constant vector. failOn makes the n-th call (1-based) fail.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn int
	err    error
	onCall func()
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil && (f.failOn == 0 || f.failOn == n) {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIndex struct {
	mu       sync.Mutex
	records  map[string]Record
	upserts  map[string]int
	nUpserts int
	failOn   int
	err      error
	onUpsert func(n int) // called with the number of records stored so far

	matches  []Match
	queryErr error
	queries  int
	gotK     int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string]Record{}, upserts: map[string]int{}}
}

func (f *fakeIndex) Upsert(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nUpserts++
	if f.err != nil && (f.failOn == 0 || f.failOn == f.nUpserts) {
		return f.err
	}
	f.records[rec.ID] = rec
	f.upserts[rec.ID]++
	if f.onUpsert != nil {
		f.onUpsert(len(f.records))
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.gotK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return append([]Match(nil), f.matches...), nil
}

func (f *fakeIndex) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeGenerator struct {
	calls       int
	gotQuestion string
	gotContext  string
	answer      string
	err         error
}

func (f *fakeGenerator) Generate(_ context.Context, question, contextText string) (string, error) {
	f.calls++
	f.gotQuestion = question
	f.gotContext = contextText
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
