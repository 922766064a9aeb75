// Package review manages user ratings of venues.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
	"github.com/kailas-cloud/cospa/internal/logger"
)

// Service creates, lists and soft-deletes reviews. A user has at most one active review per venue.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a review service.
func New(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, logger: log}
}

// Create stores a review after validation.
func (s *Service) Create(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return domreview.Review{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	r, err := s.repo.CreateReview(ctx, req)
	if errors.Is(err, domain.ErrConflict) {
		return domreview.Review{}, fmt.Errorf("create review: %w", domain.NewConflict(domreview.AlreadyReviewedMessage))
	}
	if err != nil {
		return domreview.Review{}, fmt.Errorf("create review: %w", err)
	}

	logger.FromContextOr(ctx, s.logger).Info("Review created",
		zap.String("review_id", r.ID),
		zap.String("venue_id", r.VenueID),
		zap.Int("rating", r.Rating),
	)
	return r.Public(), nil
}

// List returns the venue's active reviews and whether viewerID wrote one of them.
// viewerID may be empty.
func (s *Service) List(ctx context.Context, venueID, viewerID string) (domreview.List, error) {
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		return domreview.List{}, fmt.Errorf("venue_id is required: %w", domain.ErrInvalidInput)
	}
	rs, err := s.repo.ListReviews(ctx, venueID)
	if err != nil {
		return domreview.List{}, fmt.Errorf("list reviews: %w", err)
	}

	viewerID = strings.TrimSpace(viewerID)
	out := domreview.List{Reviews: make([]domreview.Review, len(rs))}
	for i := range rs {
		if viewerID != "" && rs[i].UserID == viewerID {
			out.UserHasReviewed = true
		}
		out.Reviews[i] = rs[i].Public()
	}
	return out, nil
}

// Delete soft-deletes the review if userID owns it.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	id, userID = strings.TrimSpace(id), strings.TrimSpace(userID)
	if id == "" || userID == "" {
		return fmt.Errorf("review id and user_id are required: %w", domain.ErrInvalidInput)
	}
	if err := s.repo.DeactivateReview(ctx, id, userID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}
