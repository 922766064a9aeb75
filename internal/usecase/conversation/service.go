package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
)

// Service handles the conversation lifecycle.
type Service struct {
	store Store
	quota *QuotaManager
}

// New creates a conversation service.
func New(store Store, quota *QuotaManager) *Service {
	return &Service{store: store, quota: quota}
}

// Create opens a new active conversation if the user is below the cap.
// A blank title becomes the default title.
func (s *Service) Create(ctx context.Context, userID, title string) (domconv.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return domconv.Conversation{}, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	title, err := domconv.NormalizeTitle(title)
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	var created domconv.Conversation
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx domconv.Tx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if err := s.quota.EnsureCanCreate(ctx, tx, userID); err != nil {
			return err
		}
		c, err := tx.InsertConversation(ctx, userID, title)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return created, nil
}

// List returns the user's active conversations with message counts.
func (s *Service) List(ctx context.Context, userID string) ([]domconv.Conversation, error) {
	cs, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return cs, nil
}

// Get returns a conversation in any state.
func (s *Service) Get(ctx context.Context, id string) (domconv.Conversation, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// Rename changes the title of an active conversation.
func (s *Service) Rename(ctx context.Context, id, title string) (domconv.Conversation, error) {
	title, err := domconv.NormalizeTitle(title)
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx domconv.Tx) error {
		if _, err := LockActive(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.UpdateTitle(ctx, id, title); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		return nil
	})
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("rename conversation: %w", err)
	}
	return s.Get(ctx, id)
}

// Messages returns the conversation's messages with the venues each reply was grounded on.
func (s *Service) Messages(ctx context.Context, id string) ([]domconv.Message, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	ms, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return ms, nil
}

// Delete soft-deletes a conversation. Deleting an inactive conversation is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx domconv.Tx) error {
		c, err := tx.LockConversation(ctx, id)
		if err != nil {
			return fmt.Errorf("lock conversation: %w", err)
		}
		if !c.IsActive() {
			return nil
		}
		if err := tx.Deactivate(ctx, id); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// LockActive locks the conversation row; inactive conversations read as missing.
func LockActive(ctx context.Context, tx domconv.Tx, id string) (domconv.Conversation, error) {
	c, err := tx.LockConversation(ctx, id)
	if err != nil {
		return domconv.Conversation{}, fmt.Errorf("lock conversation: %w", err)
	}
	if !c.IsActive() {
		return domconv.Conversation{}, fmt.Errorf("conversation %s is inactive: %w", id, domain.ErrNotFound)
	}
	return c, nil
}
