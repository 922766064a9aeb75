package review

import (
	"context"

	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
)

// Repository persists venue reviews.
type Repository interface {
	// CreateReview inserts an active review. ErrNotFound when the user is unknown,
	// ErrConflict when the user already has an active review of the venue.
	CreateReview(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error)
	// ListReviews returns the venue's active reviews, newest first.
	ListReviews(ctx context.Context, venueID string) ([]domreview.Review, error)
	// DeactivateReview soft-deletes a review owned by userID. ErrNotFound otherwise.
	DeactivateReview(ctx context.Context, id, userID string) error
}
