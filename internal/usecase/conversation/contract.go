package conversation

import (
	"context"

	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
)

// Store persists conversations and messages. Writes go through RunInTx; the
// transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx domconv.Tx) error) error

	Get(ctx context.Context, id string) (domconv.Conversation, error)
	// ListActive returns the user's active conversations, most recently updated first.
	ListActive(ctx context.Context, userID string) ([]domconv.Conversation, error)
	// Messages returns messages in insertion order with their related venues.
	Messages(ctx context.Context, conversationID string) ([]domconv.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
}

// ActiveCounter counts a user's active conversations.
type ActiveCounter interface {
	CountActive(ctx context.Context, userID string) (int, error)
}

// MessageCounter counts the messages stored in a conversation.
type MessageCounter interface {
	CountMessages(ctx context.Context, conversationID string) (int, error)
}
