package favorite

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Favorite is a venue a user saved, as it looked when saved.
type Favorite struct {
	UserID  string          `json:"user_id"`
	Venue   venue.Candidate `json:"venue"`
	SavedAt time.Time       `json:"saved_at"`
}

// SaveRequest saves a venue for a user. Venue is the snapshot shown back in lists.
type SaveRequest struct {
	UserID string
	Venue  venue.Candidate
}

// Validate checks required fields.
func (r *SaveRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(r.Venue.ID) == "" {
		return fmt.Errorf("venue id is required")
	}
	if r.Venue.Coordinate != nil && !r.Venue.Coordinate.Valid() {
		return fmt.Errorf("venue coordinate %s out of range", r.Venue.Coordinate)
	}
	if r.Venue.Rating != nil && (*r.Venue.Rating < 0 || *r.Venue.Rating > venue.MaxRating) {
		return fmt.Errorf("venue rating must be between 0 and %g", venue.MaxRating)
	}
	return nil
}
