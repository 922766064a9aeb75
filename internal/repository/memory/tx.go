package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// tx runs with Store.mu held and records an undo step per write.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) LockUser(_ context.Context, userID string) error {
	if _, ok := t.s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (t *tx) LockConversation(_ context.Context, id string) (domconv.Conversation, error) {
	return t.s.conversation(id)
}

func (t *tx) CountActive(_ context.Context, userID string) (int, error) {
	n := 0
	for _, c := range t.s.conversations {
		if c.UserID == userID && c.IsActive() {
			n++
		}
	}
	return n, nil
}

func (t *tx) CountMessages(_ context.Context, conversationID string) (int, error) {
	return len(t.s.messages[conversationID]), nil
}

func (t *tx) InsertConversation(_ context.Context, userID, title string) (domconv.Conversation, error) {
	now := t.s.now()
	c := domconv.Conversation{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		State:     domconv.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.s.conversations[c.ID] = c
	t.undo = append(t.undo, func() { delete(t.s.conversations, c.ID) })
	return c, nil
}

func (t *tx) InsertMessage(_ context.Context, conversationID string, role domconv.Role, content string) (domconv.Message, error) {
	if _, ok := t.s.conversations[conversationID]; !ok {
		return domconv.Message{}, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	m := domconv.Message{
		ID:             newID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      t.s.now(),
	}
	prev := t.s.messages[conversationID]
	t.s.messages[conversationID] = append(slices.Clip(prev), m)
	t.undo = append(t.undo, func() {
		if prev == nil {
			delete(t.s.messages, conversationID)
			return
		}
		t.s.messages[conversationID] = prev
	})
	return m, nil
}

func (t *tx) InsertAttribution(_ context.Context, messageID string, results []venue.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	t.s.related[messageID] = slices.Clone(results)
	t.undo = append(t.undo, func() { delete(t.s.related, messageID) })
	return nil
}

func (t *tx) UpdateTitle(_ context.Context, id, title string) error {
	return t.update(id, func(c *domconv.Conversation) {
		c.Title = title
		c.UpdatedAt = t.s.now()
	})
}

func (t *tx) Deactivate(_ context.Context, id string) error {
	return t.update(id, func(c *domconv.Conversation) { c.State = domconv.StateInactive })
}

func (t *tx) Touch(_ context.Context, id string) error {
	return t.update(id, func(c *domconv.Conversation) { c.UpdatedAt = t.s.now() })
}

func (t *tx) update(id string, fn func(*domconv.Conversation)) error {
	prev, ok := t.s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	next := prev
	fn(&next)
	t.s.conversations[id] = next
	t.undo = append(t.undo, func() { t.s.conversations[id] = prev })
	return nil
}
