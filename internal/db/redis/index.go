package redis

import (
	"context"
	"errors"

	"github.com/kailas-cloud/cospa/internal/db"
)

// ft runs an FT.* command and maps the "no such index" family of replies to db.ErrIndexNotFound.
func (s *Store) ft(ctx context.Context, op, verb string, args ...string) error {
	err := s.do(ctx, s.b().Arbitrary(verb).Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "unknown index name"), isRedisErr(err, "no such index"):
		return db.ErrIndexNotFound
	case isRedisErr(err, "index already exists"):
		return db.ErrIndexExists
	default:
		return &db.Error{Op: op, Err: err}
	}
}

// CreateIndex runs FT.CREATE for the venue schema. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.Args()
	if err != nil {
		return err
	}
	return s.ft(ctx, db.OpCreateIndex, "FT.CREATE", args...)
}

// DropIndex removes an FT index. With deleteDocs the indexed venue hashes are deleted as well.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if deleteDocs {
		return s.ft(ctx, db.OpDropIndex, "FT.DROPINDEX", name, "DD")
	}
	return s.ft(ctx, db.OpDropIndex, "FT.DROPINDEX", name)
}

// IndexExists asks FT.INFO about the index.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.ft(ctx, db.OpIndexInfo, "FT.INFO", name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrIndexNotFound):
		return false, nil
	default:
		return false, err
	}
}
