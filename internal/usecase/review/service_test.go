package review

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
)

// --- Mocks ---

type mockRepo struct {
	created     domreview.CreateRequest
	createCalls int
	createErr   error
	list        []domreview.Review
	deactivated [2]string
	deleteErr   error
}

func (m *mockRepo) CreateReview(_ context.Context, req domreview.CreateRequest) (domreview.Review, error) {
	m.createCalls++
	m.created = req
	if m.createErr != nil {
		return domreview.Review{}, m.createErr
	}
	return domreview.Review{
		ID: "r1", VenueID: req.VenueID, UserID: req.UserID, Rating: req.Rating,
		AuthorName: req.AuthorName, Anonymous: req.Anonymous,
	}, nil
}

func (m *mockRepo) ListReviews(context.Context, string) ([]domreview.Review, error) {
	return m.list, nil
}

func (m *mockRepo) DeactivateReview(_ context.Context, id, userID string) error {
	m.deactivated = [2]string{id, userID}
	return m.deleteErr
}

// --- Tests ---

func TestCreate(t *testing.T) {
	tests := []struct {
		name      string
		req       domreview.CreateRequest
		repoErr   error
		wantErr   error
		wantCalls int
	}{
		{"ok", domreview.CreateRequest{VenueID: "v1", UserID: "u1", Rating: 5, Comment: " ngon "}, nil, nil, 1},
		{"rating out of range", domreview.CreateRequest{VenueID: "v1", UserID: "u1", Rating: 0}, nil, domain.ErrInvalidInput, 0},
		{"second review", domreview.CreateRequest{VenueID: "v1", UserID: "u1", Rating: 3}, domain.ErrConflict, domain.ErrConflict, 1},
		{"unknown user", domreview.CreateRequest{VenueID: "v1", UserID: "ghost", Rating: 3}, domain.ErrNotFound, domain.ErrNotFound, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{createErr: tt.repoErr}
			_, err := New(repo, nil).Create(context.Background(), tt.req)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if repo.createCalls != tt.wantCalls {
				t.Errorf("repo calls = %d, want %d", repo.createCalls, tt.wantCalls)
			}
			if tt.wantErr == nil && repo.created.Comment != "ngon" {
				t.Errorf("comment not trimmed: %q", repo.created.Comment)
			}
		})
	}
}

func TestCreate_ConflictCarriesUserMessage(t *testing.T) {
	_, err := New(&mockRepo{createErr: domain.ErrConflict}, nil).Create(context.Background(),
		domreview.CreateRequest{VenueID: "v1", UserID: "u1", Rating: 4})
	var ce *domain.ConflictError
	if !errors.As(err, &ce) || ce.Message != domreview.AlreadyReviewedMessage {
		t.Fatalf("expected conflict with user message, got %v", err)
	}
}

func TestCreate_AnonymousHidesAuthor(t *testing.T) {
	r, err := New(&mockRepo{}, nil).Create(context.Background(), domreview.CreateRequest{
		VenueID: "v1", UserID: "u1", Rating: 4, AuthorName: "Lan", Anonymous: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.AuthorName != "" {
		t.Errorf("author leaked: %q", r.AuthorName)
	}
}

func TestList(t *testing.T) {
	repo := &mockRepo{list: []domreview.Review{
		{ID: "r2", UserID: "u2", Rating: 5, AuthorName: "Minh", Anonymous: true},
		{ID: "r1", UserID: "u1", Rating: 3, AuthorName: "Lan"},
	}}
	svc := New(repo, nil)

	tests := []struct {
		viewer string
		want   bool
	}{
		{"", false},
		{"u1", true},
		{"u3", false},
	}
	for _, tt := range tests {
		t.Run("viewer="+tt.viewer, func(t *testing.T) {
			got, err := svc.List(context.Background(), "v1", tt.viewer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.UserHasReviewed != tt.want {
				t.Errorf("UserHasReviewed = %v, want %v", got.UserHasReviewed, tt.want)
			}
			if len(got.Reviews) != 2 || got.Reviews[0].AuthorName != "" || got.Reviews[1].AuthorName != "Lan" {
				t.Errorf("unexpected reviews %+v", got.Reviews)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	repo := &mockRepo{}
	if err := New(repo, nil).Delete(context.Background(), "r1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deactivated != [2]string{"r1", "u1"} {
		t.Errorf("deactivated = %v", repo.deactivated)
	}

	err := New(&mockRepo{deleteErr: domain.ErrNotFound}, nil).Delete(context.Background(), "r1", "u2")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for someone else's review, got %v", err)
	}
	if err := New(&mockRepo{}, nil).Delete(context.Background(), "r1", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
