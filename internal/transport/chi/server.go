// Package chi exposes the cospa HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
	domuser "github.com/kailas-cloud/cospa/internal/domain/user"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
	"github.com/kailas-cloud/cospa/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/cospa/internal/usecase/health"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// defaultSearchLimit applies when POST /api/search omits limit.
const defaultSearchLimit = chat.DefaultResultCount

// ChatService answers chat turns.
type ChatService interface {
	Reply(ctx context.Context, req chat.Request) (chat.Response, error)
}

// SearchService runs venue searches.
type SearchService interface {
	Search(ctx context.Context, query string, desired int, user *geo.Coordinate) ([]venue.RankedResult, error)
}

// ConversationService manages conversations.
type ConversationService interface {
	Create(ctx context.Context, userID, title string) (domconv.Conversation, error)
	List(ctx context.Context, userID string) ([]domconv.Conversation, error)
	Rename(ctx context.Context, id, title string) (domconv.Conversation, error)
	Messages(ctx context.Context, id string) ([]domconv.Message, error)
	Delete(ctx context.Context, id string) error
}

// UserService mirrors identity-provider users.
type UserService interface {
	Sync(ctx context.Context, req domuser.SyncRequest) (domuser.User, error)
}

// FavoriteService manages saved venues.
type FavoriteService interface {
	Save(ctx context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error)
	List(ctx context.Context, userID string) ([]domfav.Favorite, error)
	Remove(ctx context.Context, userID, venueID string) error
}

// ReviewService manages venue reviews.
type ReviewService interface {
	Create(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error)
	List(ctx context.Context, venueID, viewerID string) (domreview.List, error)
	Delete(ctx context.Context, id, userID string) error
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Services bundles the use cases the API serves.
type Services struct {
	Chat          ChatService
	Search        SearchService
	Conversations ConversationService
	Users         UserService
	Favorites     FavoriteService
	Reviews       ReviewService
	Health        HealthService
}

// Server holds the HTTP handlers.
type Server struct {
	svc           Services
	limits        domconv.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. limits are reported on conversation lists.
func NewServer(svc Services, limits domconv.Limits, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:           svc,
		limits:        limits,
		logger:        logger,
		errorHandlers: defaultErrorHandlers,
	}
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.svc.Chat.Reply(r.Context(), chat.Request{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		History:        req.History,
		UserLocation:   req.UserLocation,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:              resp.Reply,
		Locations:          locationsToDTO(resp.Results),
		UserMessageID:      resp.UserMessageID,
		AssistantMessageID: resp.AssistantMessageID,
	})
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	results, err := s.svc.Search.Search(r.Context(), req.Query, limit, req.UserLocation)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Locations: locationsToDTO(results),
		Total:     len(results),
	})
}

// SyncUser handles POST /api/users/sync.
func (s *Server) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req domuser.SyncRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := s.svc.Users.Sync(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateConversation handles POST /api/conversations.
func (s *Server) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.svc.Conversations.Create(r.Context(), req.UserID, req.Title)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/conversations/"+c.ID)
	writeJSON(w, http.StatusCreated, conversationToDTO(&c))
}

// ListConversations handles GET /api/users/{userID}/conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.Conversations.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ConversationResponse, len(cs))
	for i := range cs {
		items[i] = conversationToDTO(&cs[i])
	}
	writeJSON(w, http.StatusOK, ConversationListResponse{
		Conversations: items,
		Limit:         s.limits.MaxActiveConversations,
	})
}

// RenameConversation handles PATCH /api/conversations/{id}.
func (s *Server) RenameConversation(w http.ResponseWriter, r *http.Request) {
	var req RenameConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.svc.Conversations.Rename(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationToDTO(&c))
}

// ConversationMessages handles GET /api/conversations/{id}/messages.
func (s *Server) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs, err := s.svc.Conversations.Messages(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]MessageResponse, len(msgs))
	for i := range msgs {
		items[i] = messageToDTO(&msgs[i])
	}
	writeJSON(w, http.StatusOK, MessageListResponse{ConversationID: id, Messages: items})
}

// DeleteConversation handles DELETE /api/conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Conversations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFavorites handles GET /api/users/{userID}/favorites.
func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.svc.Favorites.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]FavoriteResponse, len(favs))
	for i := range favs {
		items[i] = favoriteToDTO(&favs[i])
	}
	writeJSON(w, http.StatusOK, FavoriteListResponse{Locations: items})
}

// SaveFavorite handles POST /api/users/{userID}/favorites. 201 when new, 200 when already saved.
func (s *Server) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	var req SaveFavoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fav, created, err := s.svc.Favorites.Save(r.Context(), domfav.SaveRequest{
		UserID: chi.URLParam(r, "userID"),
		Venue:  locationToCandidate(&req.Venue),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, favoriteToDTO(&fav))
}

// RemoveFavorite handles DELETE /api/users/{userID}/favorites/{venueID}.
func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Favorites.Remove(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "venueID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReviews handles GET /api/venues/{venueID}/reviews?user_id=.
func (s *Server) ListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Reviews.List(r.Context(), chi.URLParam(r, "venueID"), r.URL.Query().Get("user_id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReviewListResponse{
		Reviews:         list.Reviews,
		Total:           len(list.Reviews),
		UserHasReviewed: list.UserHasReviewed,
	})
}

// CreateReview handles POST /api/venues/{venueID}/reviews.
func (s *Server) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rv, err := s.svc.Reviews.Create(r.Context(), domreview.CreateRequest{
		VenueID:     chi.URLParam(r, "venueID"),
		UserID:      req.UserID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		Images:      req.Images,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/reviews/"+rv.ID)
	writeJSON(w, http.StatusCreated, rv)
}

// DeleteReview handles DELETE /api/reviews/{id}?user_id=. Only the author may delete.
func (s *Server) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reviews.Delete(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user_id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// decodeBody parses a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
