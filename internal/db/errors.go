package db

import "errors"

var (
	// ErrKeyNotFound is returned by Cache.Get on a miss.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound is returned when the FT index does not exist.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex when the name is taken.
	ErrIndexExists = errors.New("db: index already exists")
)

// Redis commands named in Error.Op.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error tags a store failure with the command that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap returns the underlying client error.
func (e *Error) Unwrap() error { return e.Err }

// IsStoreError reports whether err came from a store command.
func IsStoreError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
