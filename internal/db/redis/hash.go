package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cospa/internal/db"
)

// maxPipeline bounds how many HSETs go out in one DoMulti call during imports.
const maxPipeline = 256

// HSetMulti writes venue hashes, pipelining up to maxPipeline commands per round-trip.
// The first failing key aborts the remaining chunks.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for start := 0; start < len(items); start += maxPipeline {
		chunk := items[start:min(start+maxPipeline, len(items))]

		cmds := make(rueidis.Commands, len(chunk))
		for i := range chunk {
			hset := s.b().Hset().Key(chunk[i].Key).FieldValue()
			for field, value := range chunk[i].Fields {
				hset = hset.FieldValue(field, value)
			}
			cmds[i] = hset.Build()
		}

		for i, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", chunk[i].Key, err)}
			}
		}
	}
	return nil
}
