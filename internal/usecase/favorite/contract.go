package favorite

import (
	"context"

	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Repository persists saved venues.
type Repository interface {
	// SaveFavorite stores the venue for the user. created is false when it was already saved,
	// in which case the stored favorite is returned unchanged. ErrNotFound when the user is unknown.
	SaveFavorite(ctx context.Context, userID string, v venue.Candidate) (fav domfav.Favorite, created bool, err error)
	// ListFavorites returns the user's favorites, most recently saved first.
	ListFavorites(ctx context.Context, userID string) ([]domfav.Favorite, error)
	// RemoveFavorite deletes the favorite; removing an absent one is not an error.
	RemoveFavorite(ctx context.Context, userID, venueID string) error
}
