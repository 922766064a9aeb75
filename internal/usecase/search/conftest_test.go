package search

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/cospa/internal/domain"
)

// --- Mocks ---

type mockIndex struct {
	hits      []Hit
	err       error
	lastLimit int
	calls     int
}

func (m *mockIndex) Query(_ context.Context, _ []float32, limit int) ([]Hit, error) {
	m.calls++
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.hits) {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	text  string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec := m.vec
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// hit builds an index hit at the given coordinate; lat/lng of 999 means "no coordinate".
func hit(id string, score, lat, lng float64) Hit {
	p := map[string]string{"name": "Venue " + id, "type": "cafe", "address": id + " street"}
	if lat != 999 {
		p["lat"] = strconv.FormatFloat(lat, 'f', -1, 64)
		p["lng"] = strconv.FormatFloat(lng, 'f', -1, 64)
	}
	return Hit{ID: id, Score: score, Payload: p}
}
