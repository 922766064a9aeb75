package search

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Default over-fetch multipliers applied to the desired result count.
const (
	DefaultOverfetchWithLocation    = 5
	DefaultOverfetchWithoutLocation = 2
)

// Retriever embeds a query and over-fetches candidates from the vector index.
type Retriever struct {
	index           VectorIndex
	embed           Embedder
	withLocation    int
	withoutLocation int
}

// NewRetriever creates a retriever. Non-positive multipliers fall back to the defaults.
func NewRetriever(index VectorIndex, embed Embedder, withLocation, withoutLocation int) *Retriever {
	if withLocation <= 0 {
		withLocation = DefaultOverfetchWithLocation
	}
	if withoutLocation <= 0 {
		withoutLocation = DefaultOverfetchWithoutLocation
	}
	return &Retriever{
		index:           index,
		embed:           embed,
		withLocation:    withLocation,
		withoutLocation: withoutLocation,
	}
}

// Limit is the number of raw hits requested for desired results.
func (r *Retriever) Limit(desired int, hasUserLocation bool) int {
	if hasUserLocation {
		return desired * r.withLocation
	}
	return desired * r.withoutLocation
}

// Retrieve returns candidates in index order. Candidates without coordinates are kept.
// Every failure wraps domain.ErrRetrievalFailure.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, desired int, hasUserLocation bool,
) ([]venue.Candidate, error) {
	if desired <= 0 {
		return nil, nil
	}

	emb, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrRetrievalFailure, err)
	}
	if err := emb.Validate(); err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Query(ctx, emb.Embedding, r.Limit(desired, hasUserLocation))
	if err != nil {
		return nil, fmt.Errorf("query index: %w: %w", domain.ErrRetrievalFailure, err)
	}

	out := make([]venue.Candidate, 0, len(hits))
	for _, h := range hits {
		if h.ID == "" && h.Payload[venue.KeyID] == "" {
			return nil, fmt.Errorf("index hit without id: %w", domain.ErrRetrievalFailure)
		}
		if math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
			return nil, fmt.Errorf("index hit %s has non-finite score: %w", h.ID, domain.ErrRetrievalFailure)
		}
		out = append(out, venue.FromPayload(h.ID, h.Score, h.Payload))
	}
	return out, nil
}
