package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cospa/internal/db"
	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

const (
	keyPrefix   = "cospa:venue:"
	vectorField = "embedding"
)

// payloadFields are the hash fields returned with every hit.
var payloadFields = []string{
	venue.KeyID, venue.KeyName, venue.KeyType, venue.KeyAddress, venue.KeyBrand,
	venue.KeyCity, venue.KeyWard, venue.KeyArea, venue.KeyLat, venue.KeyLng,
	venue.KeyRating, venue.KeyReviewCount, venue.KeyPhone,
	venue.KeyLinkGoogle, venue.KeyLinkWeb, venue.KeyThumbnailURL,
}

// store is the consumer interface for the venue index (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
}

// IndexOptions configure the FT index created by EnsureIndex.
type IndexOptions struct {
	Dimensions  int
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

// Repo is a venue vector index backed by Redis FT.SEARCH.
type Repo struct {
	store store
	index string
}

// New creates a Redis venue index repository.
func New(s store, indexName string) *Repo {
	return &Repo{store: s, index: indexName}
}

// Query returns up to limit hits ordered by descending cosine similarity.
func (r *Repo) Query(ctx context.Context, vector []float32, limit int) ([]venue.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.index,
		VectorField:  vectorField,
		Vector:       vector,
		K:            limit,
		ReturnFields: payloadFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w", r.index, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("search knn %s: %w", r.index, err)
	}
	if sr == nil {
		return nil, nil
	}

	hits := make([]venue.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, venue.Hit{
			ID:      strings.TrimPrefix(e.Key, keyPrefix),
			Score:   e.Score,
			Payload: e.Fields,
		})
	}
	return hits, nil
}

// Upsert writes venue hashes with their embeddings in one pipeline.
func (r *Repo) Upsert(ctx context.Context, docs []venue.Document) error {
	items := make([]db.HashSetItem, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		if d.Candidate.ID == "" {
			return fmt.Errorf("venue %d has no id: %w", i, domain.ErrInvalidInput)
		}
		fields := d.Candidate.ToPayload()
		fields[venue.KeySearchText] = d.Candidate.SearchText()
		fields[vectorField] = string(db.VectorToBytes(d.Vector))
		items = append(items, db.HashSetItem{Key: keyPrefix + d.Candidate.ID, Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d venues: %w", len(items), err)
	}
	return nil
}

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, opts IndexOptions) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.index).
		Prefix(keyPrefix).
		Text(venue.KeyName, venue.KeyAddress, venue.KeySearchText).
		Tag(venue.KeyType, venue.KeyCity, venue.KeyBrand).
		Numeric(venue.KeyLat, venue.KeyLng, venue.KeyRating).
		Vector(vectorField, opts.Dimensions, opts.Algorithm, db.DistanceCosine, opts.M, opts.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", r.index, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

// Reset drops the index together with every venue hash it covers.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.index, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.index, err)
	}
	return nil
}

// Ready reports whether the index exists.
func (r *Repo) Ready(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if !exists {
		return fmt.Errorf("index %s: %w", r.index, domain.ErrNotFound)
	}
	return nil
}
