package chi

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
)

func TestFavorites_Routes(t *testing.T) {
	var saved domfav.SaveRequest
	var removed [2]string
	svc := &mockFavorites{
		saveFn: func(_ context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error) {
			saved = req
			return domfav.Favorite{UserID: req.UserID, Venue: req.Venue, SavedAt: fixedTime}, req.Venue.ID == "v-new", nil
		},
		listFn: func(_ context.Context, userID string) ([]domfav.Favorite, error) {
			return []domfav.Favorite{{UserID: userID, Venue: phoThin().Candidate, SavedAt: fixedTime}}, nil
		},
		removeFn: func(_ context.Context, userID, venueID string) error {
			removed = [2]string{userID, venueID}
			return nil
		},
	}
	router := NewRouter(newTestServer(Services{Favorites: svc}), RouterConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"save new", http.MethodPost, "/api/users/u1/favorites",
			`{"venue":{"id":"v-new","name":"Phở Thìn","lat":21.0173,"lng":105.8552,"rating":4.5}}`, http.StatusCreated},
		{"save again", http.MethodPost, "/api/users/u1/favorites", `{"venue":{"id":"v-old"}}`, http.StatusOK},
		{"list", http.MethodGet, "/api/users/u1/favorites", "", http.StatusOK},
		{"remove", http.MethodDelete, "/api/users/u1/favorites/v-pho", "", http.StatusNoContent},
		{"bad body", http.MethodPost, "/api/users/u1/favorites", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if saved.UserID != "u1" || saved.Venue.ID != "v-old" {
		t.Errorf("last save = %+v", saved)
	}
	if removed != [2]string{"u1", "v-pho"} {
		t.Errorf("removed = %v", removed)
	}

	rr := do(t, router, http.MethodGet, "/api/users/u1/favorites", "")
	resp := decode[FavoriteListResponse](t, rr)
	if len(resp.Locations) != 1 || resp.Locations[0].ID != "v-pho" || resp.Locations[0].Lat == nil {
		t.Errorf("unexpected list %+v", resp)
	}
}

func TestFavorites_SaveCarriesCoordinate(t *testing.T) {
	var saved domfav.SaveRequest
	svc := &mockFavorites{saveFn: func(_ context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error) {
		saved = req
		return domfav.Favorite{UserID: req.UserID, Venue: req.Venue}, true, nil
	}}
	do(t, NewRouter(newTestServer(Services{Favorites: svc}), RouterConfig{}), http.MethodPost,
		"/api/users/u1/favorites", `{"venue":{"id":"v1","lat":21.0173,"lng":105.8552}}`)

	if saved.Venue.Coordinate == nil || saved.Venue.Coordinate.Lat != 21.0173 {
		t.Fatalf("coordinate not mapped: %+v", saved.Venue.Coordinate)
	}
}

func TestReviews_Routes(t *testing.T) {
	var created domreview.CreateRequest
	var deleted [2]string
	var viewer string
	svc := &mockReviews{
		createFn: func(_ context.Context, req domreview.CreateRequest) (domreview.Review, error) {
			created = req
			return domreview.Review{ID: "r1", VenueID: req.VenueID, UserID: req.UserID, Rating: req.Rating}, nil
		},
		listFn: func(_ context.Context, _ string, viewerID string) (domreview.List, error) {
			viewer = viewerID
			return domreview.List{Reviews: []domreview.Review{{ID: "r1", Rating: 5}}, UserHasReviewed: true}, nil
		},
		deleteFn: func(_ context.Context, id, userID string) error {
			deleted = [2]string{id, userID}
			return nil
		},
	}
	router := NewRouter(newTestServer(Services{Reviews: svc}), RouterConfig{})

	rr := do(t, router, http.MethodPost, "/api/venues/v-pho/reviews",
		`{"user_id":"u1","rating":5,"comment":"ngon","is_anonymous":true}`)
	if rr.Code != http.StatusCreated || rr.Header().Get("Location") != "/api/reviews/r1" {
		t.Fatalf("create: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	if created.VenueID != "v-pho" || created.UserID != "u1" || !created.Anonymous {
		t.Errorf("create args = %+v", created)
	}

	rr = do(t, router, http.MethodGet, "/api/venues/v-pho/reviews?user_id=u1", "")
	resp := decode[ReviewListResponse](t, rr)
	if resp.Total != 1 || !resp.UserHasReviewed || viewer != "u1" {
		t.Errorf("list = %+v viewer=%q", resp, viewer)
	}

	if rr := do(t, router, http.MethodDelete, "/api/reviews/r1?user_id=u1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status=%d", rr.Code)
	}
	if deleted != [2]string{"r1", "u1"} {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestReviews_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorCode
		wantMsg  string
	}{
		{"second review", fmt.Errorf("create review: %w", domain.NewConflict(domreview.AlreadyReviewedMessage)),
			http.StatusConflict, CodeConflict, domreview.AlreadyReviewedMessage},
		{"bare conflict", domain.ErrConflict, http.StatusConflict, CodeConflict, "conflict"},
		{"bad rating", fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput),
			http.StatusBadRequest, CodeValidationFailed, ""},
		{"unknown user", fmt.Errorf("create review: %w", domain.ErrNotFound), http.StatusNotFound, CodeNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReviews{createFn: func(context.Context, domreview.CreateRequest) (domreview.Review, error) {
				return domreview.Review{}, tt.err
			}}
			rr := do(t, NewRouter(newTestServer(Services{Reviews: svc}), RouterConfig{}), http.MethodPost,
				"/api/venues/v1/reviews", `{"user_id":"u1","rating":4}`)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.wantBody {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantBody)
			}
			if tt.wantMsg != "" && resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}
