// Package db holds the storage contracts and FT index model shared by the Redis
// venue index and the embedding cache.
package db

import (
	"context"
	"time"
)

// HashSetItem is one venue hash written by a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// DocumentWriter stores venue documents as hashes.
type DocumentWriter interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
}

// Cache is a byte-valued key-value store with expiry, used for query embeddings.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager handles the FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes the index; deleteDocs also removes the indexed hashes.
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN queries over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
