// Package memory is an in-process conversation, user, favorite and review store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	domuser "github.com/kailas-cloud/cospa/internal/domain/user"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Store keeps everything in maps. Transactions are serialized by a single
// mutex and undone on failure, so quota checks and writes never interleave.
type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	users         map[string]domuser.User // by id
	byExternal    map[string]string       // external id -> id
	conversations map[string]domconv.Conversation
	messages      map[string][]domconv.Message // by conversation id
	related       map[string][]venue.RankedResult
	favorites     map[string][]domfav.Favorite // by user id, oldest first
	reviews       []storedReview               // insertion order
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[string]domuser.User),
		byExternal:    make(map[string]string),
		conversations: make(map[string]domconv.Conversation),
		messages:      make(map[string][]domconv.Message),
		related:       make(map[string][]venue.RankedResult),
		favorites:     make(map[string][]domfav.Favorite),
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RunInTx runs fn under the store lock. Writes are rolled back when fn fails
// or ctx is done before commit.
func (s *Store) RunInTx(ctx context.Context, fn func(context.Context, domconv.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin: %w: %w", domain.ErrPersistence, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return fmt.Errorf("commit: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Get returns a conversation with its message count.
func (s *Store) Get(_ context.Context, id string) (domconv.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation(id)
}

// ListActive returns the user's active conversations, most recently updated first.
func (s *Store) ListActive(_ context.Context, userID string) ([]domconv.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domconv.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID && c.IsActive() {
			c.MessageCount = len(s.messages[c.ID])
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Messages returns messages in insertion order with related venues.
func (s *Store) Messages(_ context.Context, conversationID string) ([]domconv.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	stored := s.messages[conversationID]
	out := make([]domconv.Message, len(stored))
	for i := range stored {
		out[i] = stored[i]
		if rs := s.related[stored[i].ID]; len(rs) > 0 {
			out[i].Related = slices.Clone(rs)
		}
	}
	return out, nil
}

// CountMessages returns the stored message count.
func (s *Store) CountMessages(_ context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	return len(s.messages[conversationID]), nil
}

// UpsertUser inserts or updates a user keyed by external id.
func (s *Store) UpsertUser(_ context.Context, req domuser.SyncRequest) (domuser.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id, ok := s.byExternal[req.ExternalID]; ok {
		u := s.users[id]
		u.Email = req.Email
		u.FullName = req.FullName
		u.AvatarURL = req.AvatarURL
		u.UpdatedAt = now
		s.users[id] = u
		return u, nil
	}
	u := domuser.User{
		ID:         newID(),
		ExternalID: req.ExternalID,
		Email:      req.Email,
		FullName:   req.FullName,
		AvatarURL:  req.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.users[u.ID] = u
	s.byExternal[u.ExternalID] = u.ID
	return u, nil
}

// GetUser returns a user by internal id.
func (s *Store) GetUser(_ context.Context, id string) (domuser.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domuser.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// conversation must be called with mu held.
func (s *Store) conversation(id string) (domconv.Conversation, error) {
	c, ok := s.conversations[id]
	if !ok {
		return domconv.Conversation{}, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	c.MessageCount = len(s.messages[id])
	return c, nil
}
