package chi

import (
	"fmt"
	"time"

	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversation_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	History        []llm.Message   `json:"history,omitempty"`
	UserLocation   *geo.Coordinate `json:"user_location,omitempty"`
}

// ChatResponse is the reply with the venues it was grounded on.
type ChatResponse struct {
	Reply              string     `json:"reply"`
	Locations          []Location `json:"locations"`
	UserMessageID      string     `json:"user_message_id,omitempty"`
	AssistantMessageID string     `json:"assistant_message_id,omitempty"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query        string          `json:"query"`
	Limit        int             `json:"limit,omitempty"`
	UserLocation *geo.Coordinate `json:"user_location,omitempty"`
}

// SearchResponse lists ranked venues.
type SearchResponse struct {
	Locations []Location `json:"locations"`
	Total     int        `json:"total"`
}

// Location is a ranked venue as rendered to clients.
type Location struct {
	ID           string   `json:"id"`
	Rank         int      `json:"rank"`
	Score        float64  `json:"score"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Brand        string   `json:"brand,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  *int     `json:"review_count,omitempty"`
	Address      string   `json:"address"`
	Distance     string   `json:"distance,omitempty"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	Phone        string   `json:"phone_number,omitempty"`
	LinkGoogle   string   `json:"link_google,omitempty"`
	LinkWeb      string   `json:"link_web,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

// RenameConversationRequest is the body of PATCH /api/conversations/{id}.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ConversationResponse is a conversation summary.
type ConversationResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationListResponse lists active conversations, newest activity first.
type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Limit         int                    `json:"limit"`
}

// MessageResponse is a stored message.
type MessageResponse struct {
	ID               string     `json:"id"`
	Role             string     `json:"role"`
	Content          string     `json:"content"`
	CreatedAt        time.Time  `json:"created_at"`
	RelatedLocations []Location `json:"related_locations,omitempty"`
}

// MessageListResponse lists the messages of a conversation in order.
type MessageListResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

// SaveFavoriteRequest is the body of POST /api/users/{userID}/favorites.
// Venue is the location as the client received it from search or chat.
type SaveFavoriteRequest struct {
	Venue Location `json:"venue"`
}

// FavoriteResponse is a saved venue.
type FavoriteResponse struct {
	Location
	SavedAt time.Time `json:"saved_at"`
}

// FavoriteListResponse lists saved venues, newest first.
type FavoriteListResponse struct {
	Locations []FavoriteResponse `json:"locations"`
}

// CreateReviewRequest is the body of POST /api/venues/{venueID}/reviews.
type CreateReviewRequest struct {
	UserID      string   `json:"user_id"`
	Rating      int      `json:"rating"`
	Comment     string   `json:"comment"`
	Images      []string `json:"images,omitempty"`
	AuthorName  string   `json:"user_name,omitempty"`
	AuthorEmail string   `json:"user_email,omitempty"`
	Anonymous   bool     `json:"is_anonymous"`
}

// ReviewListResponse lists the active reviews of a venue.
type ReviewListResponse struct {
	Reviews         []domreview.Review `json:"reviews"`
	Total           int                `json:"total"`
	UserHasReviewed bool               `json:"user_has_reviewed"`
}

// HealthResponse reports component status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func locationsToDTO(rs []venue.RankedResult) []Location {
	out := make([]Location, len(rs))
	for i := range rs {
		out[i] = locationToDTO(&rs[i])
	}
	return out
}

func locationToDTO(r *venue.RankedResult) Location {
	l := Location{
		ID:           r.ID,
		Rank:         r.Rank,
		Score:        r.Score,
		Name:         r.Name,
		Type:         r.Type,
		Brand:        r.Brand,
		Rating:       r.Rating,
		ReviewCount:  r.ReviewCount,
		Address:      r.Address,
		DistanceKm:   r.DistanceFromUserKm,
		Phone:        r.Phone,
		LinkGoogle:   r.LinkGoogle,
		LinkWeb:      r.LinkWeb,
		ThumbnailURL: r.ThumbnailURL,
	}
	if r.DistanceFromUserKm != nil {
		l.Distance = fmt.Sprintf("%.1f km", *r.DistanceFromUserKm)
	}
	if r.Coordinate != nil {
		lat, lng := r.Coordinate.Lat, r.Coordinate.Lng
		l.Lat, l.Lng = &lat, &lng
	}
	return l
}

func conversationToDTO(c *domconv.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func messageToDTO(m *domconv.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if len(m.Related) > 0 {
		resp.RelatedLocations = locationsToDTO(m.Related)
	}
	return resp
}

func locationToCandidate(l *Location) venue.Candidate {
	c := venue.Candidate{
		ID:           l.ID,
		Name:         l.Name,
		Type:         l.Type,
		Brand:        l.Brand,
		Rating:       l.Rating,
		ReviewCount:  l.ReviewCount,
		Address:      l.Address,
		Phone:        l.Phone,
		LinkGoogle:   l.LinkGoogle,
		LinkWeb:      l.LinkWeb,
		ThumbnailURL: l.ThumbnailURL,
	}
	if l.Lat != nil && l.Lng != nil {
		c.Coordinate = &geo.Coordinate{Lat: *l.Lat, Lng: *l.Lng}
	}
	return c
}

func favoriteToDTO(f *domfav.Favorite) FavoriteResponse {
	return FavoriteResponse{
		Location: locationToDTO(&venue.RankedResult{Candidate: f.Venue}),
		SavedAt:  f.SavedAt.UTC(),
	}
}
