package ingest

import (
	"context"
	"strconv"
	"sync"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// --- Mocks ---

type mockEmbedder struct {
	mu    sync.Mutex
	texts []string
	fn    func(texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(texts)
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{1, 0}
	}
	return out, nil
}

type mockSink struct {
	mu   sync.Mutex
	docs []venue.Document
	err  error
}

func (m *mockSink) Upsert(_ context.Context, docs []venue.Document) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
	return nil
}

func candidates(n int) []venue.Candidate {
	out := make([]venue.Candidate, n)
	for i := range out {
		out[i] = venue.Candidate{ID: "v" + strconv.Itoa(i), Name: "Quán " + strconv.Itoa(i)}
	}
	return out
}
