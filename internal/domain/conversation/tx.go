package conversation

import (
	"context"

	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Tx is the unit of work a conversation store runs quota checks and writes in.
// Reads through Tx observe the transaction's own writes. Lock methods block
// concurrent transactions on the same row until commit or rollback.
type Tx interface {
	// LockUser locks the user row. ErrNotFound when the user does not exist.
	LockUser(ctx context.Context, userID string) error
	// LockConversation locks and returns the conversation row in any state.
	LockConversation(ctx context.Context, id string) (Conversation, error)

	CountActive(ctx context.Context, userID string) (int, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)

	InsertConversation(ctx context.Context, userID, title string) (Conversation, error)
	InsertMessage(ctx context.Context, conversationID string, role Role, content string) (Message, error)
	// InsertAttribution links the ranked venues a message was grounded on.
	InsertAttribution(ctx context.Context, messageID string, results []venue.RankedResult) error

	UpdateTitle(ctx context.Context, id, title string) error
	// Deactivate moves the conversation to StateInactive. Messages are kept.
	Deactivate(ctx context.Context, id string) error
	// Touch bumps updated_at.
	Touch(ctx context.Context, id string) error
}
