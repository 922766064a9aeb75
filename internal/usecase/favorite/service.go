// Package favorite manages the venues users save.
package favorite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	"github.com/kailas-cloud/cospa/internal/logger"
)

// Service saves, lists and removes favorites.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a favorite service.
func New(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, logger: log}
}

// Save stores the venue for the user. Saving twice is idempotent.
func (s *Service) Save(ctx context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Venue.ID = strings.TrimSpace(req.Venue.ID)
	if err := req.Validate(); err != nil {
		return domfav.Favorite{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	// the similarity score belongs to the search that surfaced the venue
	req.Venue.Score = 0

	fav, created, err := s.repo.SaveFavorite(ctx, req.UserID, req.Venue)
	if err != nil {
		return domfav.Favorite{}, false, fmt.Errorf("save favorite: %w", err)
	}
	if created {
		logger.FromContextOr(ctx, s.logger).Info("Favorite saved",
			zap.String("user_id", req.UserID),
			zap.String("venue_id", req.Venue.ID),
		)
	}
	return fav, created, nil
}

// List returns the user's favorites, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domfav.Favorite, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrInvalidInput)
	}
	favs, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

// Remove deletes a favorite.
func (s *Service) Remove(ctx context.Context, userID, venueID string) error {
	userID, venueID = strings.TrimSpace(userID), strings.TrimSpace(venueID)
	if userID == "" || venueID == "" {
		return fmt.Errorf("user_id and venue_id are required: %w", domain.ErrInvalidInput)
	}
	if err := s.repo.RemoveFavorite(ctx, userID, venueID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
