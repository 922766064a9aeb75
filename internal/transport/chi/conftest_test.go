package chi

import (
	"context"
	"errors"
	"time"

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

// --- Mocks ---

type mockChat struct {
	replyFn func(ctx context.Context, req chat.Request) (chat.Response, error)
}

func (m *mockChat) Reply(ctx context.Context, req chat.Request) (chat.Response, error) {
	return m.replyFn(ctx, req)
}

type mockSearch struct {
	searchFn func(ctx context.Context, query string, desired int, user *geo.Coordinate) ([]venue.RankedResult, error)
}

func (m *mockSearch) Search(
	ctx context.Context, query string, desired int, user *geo.Coordinate,
) ([]venue.RankedResult, error) {
	return m.searchFn(ctx, query, desired, user)
}

type mockConversations struct {
	createFn   func(ctx context.Context, userID, title string) (domconv.Conversation, error)
	listFn     func(ctx context.Context, userID string) ([]domconv.Conversation, error)
	renameFn   func(ctx context.Context, id, title string) (domconv.Conversation, error)
	messagesFn func(ctx context.Context, id string) ([]domconv.Message, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockConversations) Create(ctx context.Context, userID, title string) (domconv.Conversation, error) {
	return m.createFn(ctx, userID, title)
}

func (m *mockConversations) List(ctx context.Context, userID string) ([]domconv.Conversation, error) {
	return m.listFn(ctx, userID)
}

func (m *mockConversations) Rename(ctx context.Context, id, title string) (domconv.Conversation, error) {
	return m.renameFn(ctx, id, title)
}

func (m *mockConversations) Messages(ctx context.Context, id string) ([]domconv.Message, error) {
	return m.messagesFn(ctx, id)
}

func (m *mockConversations) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockUsers struct {
	syncFn func(ctx context.Context, req domuser.SyncRequest) (domuser.User, error)
}

func (m *mockUsers) Sync(ctx context.Context, req domuser.SyncRequest) (domuser.User, error) {
	return m.syncFn(ctx, req)
}

type mockFavorites struct {
	saveFn   func(ctx context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error)
	listFn   func(ctx context.Context, userID string) ([]domfav.Favorite, error)
	removeFn func(ctx context.Context, userID, venueID string) error
}

func (m *mockFavorites) Save(ctx context.Context, req domfav.SaveRequest) (domfav.Favorite, bool, error) {
	return m.saveFn(ctx, req)
}

func (m *mockFavorites) List(ctx context.Context, userID string) ([]domfav.Favorite, error) {
	return m.listFn(ctx, userID)
}

func (m *mockFavorites) Remove(ctx context.Context, userID, venueID string) error {
	return m.removeFn(ctx, userID, venueID)
}

type mockReviews struct {
	createFn func(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error)
	listFn   func(ctx context.Context, venueID, viewerID string) (domreview.List, error)
	deleteFn func(ctx context.Context, id, userID string) error
}

func (m *mockReviews) Create(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error) {
	return m.createFn(ctx, req)
}

func (m *mockReviews) List(ctx context.Context, venueID, viewerID string) (domreview.List, error) {
	return m.listFn(ctx, venueID, viewerID)
}

func (m *mockReviews) Delete(ctx context.Context, id, userID string) error {
	return m.deleteFn(ctx, id, userID)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

var errBoom = errors.New("boom")

var fixedTime = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func phoThin() venue.RankedResult {
	return venue.RankedResult{
		Candidate: venue.Candidate{
			ID:         "v-pho",
			Name:       "Phở Thìn",
			Type:       "Restaurant",
			Address:    "13 Lò Đúc, Hai Bà Trưng, Hà Nội",
			Coordinate: &geo.Coordinate{Lat: 21.0173, Lng: 105.8552},
			Score:      0.91,
			Rating:     ptr(4.5),
		},
		DistanceFromUserKm: ptr(1.24),
		Rank:               1,
	}
}

func newTestServer(svc Services) *Server {
	return NewServer(svc, domconv.DefaultLimits(), zap.NewNop())
}
