package user

import (
	"context"

	domuser "github.com/kailas-cloud/cospa/internal/domain/user"
)

// Repository persists users.
type Repository interface {
	// UpsertUser inserts or updates the user keyed by external id.
	UpsertUser(ctx context.Context, req domuser.SyncRequest) (domuser.User, error)
	GetUser(ctx context.Context, id string) (domuser.User, error)
}
