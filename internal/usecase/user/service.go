package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cospa/internal/domain"
	domuser "github.com/kailas-cloud/cospa/internal/domain/user"
)

// Service mirrors identity-provider accounts.
type Service struct {
	repo Repository
}

// New creates a user service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Sync upserts a user by external id and returns the stored record.
func (s *Service) Sync(ctx context.Context, req domuser.SyncRequest) (domuser.User, error) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return domuser.User{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	u, err := s.repo.UpsertUser(ctx, req)
	if err != nil {
		return domuser.User{}, fmt.Errorf("sync user: %w", err)
	}
	return u, nil
}

// Get returns a user by internal id.
func (s *Service) Get(ctx context.Context, id string) (domuser.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domuser.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
