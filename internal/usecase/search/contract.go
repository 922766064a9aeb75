package search

import (
	"context"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Hit is a raw index match.
type Hit = venue.Hit

// VectorIndex is a black-box k-nearest-neighbour index keyed by cosine similarity.
// Hits are ordered by descending score; ties keep the index's own order.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, limit int) ([]Hit, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
