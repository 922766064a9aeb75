package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/cospa/internal/domain"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// SaveFavorite stores the venue once per user.
func (s *Store) SaveFavorite(_ context.Context, userID string, v venue.Candidate) (domfav.Favorite, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return domfav.Favorite{}, false, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	for _, f := range s.favorites[userID] {
		if f.Venue.ID == v.ID {
			return f, false, nil
		}
	}
	f := domfav.Favorite{UserID: userID, Venue: v, SavedAt: s.now()}
	s.favorites[userID] = append(s.favorites[userID], f)
	return f, true, nil
}

// ListFavorites returns the user's favorites, newest first. Unknown users have none.
func (s *Store) ListFavorites(_ context.Context, userID string) ([]domfav.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.favorites[userID])
	slices.Reverse(out)
	if out == nil {
		out = []domfav.Favorite{}
	}
	return out, nil
}

// RemoveFavorite deletes the favorite if present.
func (s *Store) RemoveFavorite(_ context.Context, userID, venueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.favorites[userID] = slices.DeleteFunc(s.favorites[userID], func(f domfav.Favorite) bool {
		return f.Venue.ID == venueID
	})
	return nil
}

// CreateReview inserts a review unless the user has an active one for the venue.
func (s *Store) CreateReview(_ context.Context, req domreview.CreateRequest) (domreview.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		return domreview.Review{}, fmt.Errorf("user %s: %w", req.UserID, domain.ErrNotFound)
	}
	for i := range s.reviews {
		r := &s.reviews[i]
		if r.active && r.VenueID == req.VenueID && r.UserID == req.UserID {
			return domreview.Review{}, fmt.Errorf("review of %s by %s: %w", req.VenueID, req.UserID, domain.ErrConflict)
		}
	}

	now := s.now()
	r := domreview.Review{
		ID:          newID(),
		VenueID:     req.VenueID,
		UserID:      req.UserID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		Images:      append([]string{}, req.Images...),
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Anonymous:   req.Anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.reviews = append(s.reviews, storedReview{Review: r, active: true})
	return r, nil
}

// ListReviews returns the venue's active reviews, newest first.
func (s *Store) ListReviews(_ context.Context, venueID string) ([]domreview.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domreview.Review, 0)
	for i := len(s.reviews) - 1; i >= 0; i-- {
		if r := s.reviews[i]; r.active && r.VenueID == venueID {
			out = append(out, r.Review)
		}
	}
	return out, nil
}

// DeactivateReview soft-deletes an active review owned by userID.
func (s *Store) DeactivateReview(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reviews {
		r := &s.reviews[i]
		if r.ID == id && r.UserID == userID && r.active {
			r.active = false
			r.UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
}

type storedReview struct {
	domreview.Review
	active bool
}
