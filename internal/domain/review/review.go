package review

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Rating bounds and content caps.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 2000
	MaxImages        = 10
)

// AlreadyReviewedMessage is shown when a user reviews the same venue twice.
const AlreadyReviewedMessage = "Bạn đã đánh giá địa điểm này rồi. Mỗi người dùng chỉ được đánh giá 1 lần."

// Review is a user's rating of a venue. Deleted reviews are kept inactive.
type Review struct {
	ID          string    `json:"id"`
	VenueID     string    `json:"venue_id"`
	UserID      string    `json:"user_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	Images      []string  `json:"images"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Anonymous   bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Public hides the author's name and email on anonymous reviews.
func (r Review) Public() Review {
	if r.Anonymous {
		r.AuthorName = ""
		r.AuthorEmail = ""
	}
	return r
}

// CreateRequest is a new review.
type CreateRequest struct {
	VenueID     string
	UserID      string
	Rating      int
	Comment     string
	Images      []string
	AuthorName  string
	AuthorEmail string
	Anonymous   bool
}

// Normalize trims text fields and drops blank image urls.
func (r *CreateRequest) Normalize() {
	r.VenueID = strings.TrimSpace(r.VenueID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.Comment = strings.TrimSpace(r.Comment)
	r.AuthorName = strings.TrimSpace(r.AuthorName)
	r.AuthorEmail = strings.TrimSpace(r.AuthorEmail)
	images := make([]string, 0, len(r.Images))
	for _, u := range r.Images {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	r.Images = images
}

// Validate checks required fields and bounds.
func (r *CreateRequest) Validate() error {
	switch {
	case r.VenueID == "":
		return fmt.Errorf("venue_id is required")
	case r.UserID == "":
		return fmt.Errorf("user_id is required")
	case r.Rating < MinRating || r.Rating > MaxRating:
		return fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
	case utf8.RuneCountInString(r.Comment) > MaxCommentLength:
		return fmt.Errorf("comment too long (max %d)", MaxCommentLength)
	case len(r.Images) > MaxImages:
		return fmt.Errorf("at most %d images", MaxImages)
	}
	return nil
}

// List is the active reviews of a venue for one viewer.
type List struct {
	Reviews         []Review
	UserHasReviewed bool
}
