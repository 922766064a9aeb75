package ingest

import (
	"context"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Embedder vectorizes venue texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Sink writes embedded venues to a vector index.
type Sink interface {
	Upsert(ctx context.Context, docs []venue.Document) error
}
