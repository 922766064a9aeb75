package chat

import (
	"context"
	"time"

	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Searcher returns grounded venues; retrieval failures come back as an empty result.
type Searcher interface {
	SearchOrEmpty(ctx context.Context, query string, desired int, user *geo.Coordinate) ([]venue.RankedResult, error)
}

// Generator produces the assistant reply.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Completion, error)
}

// EventPublisher announces persisted turns.
type EventPublisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}

// Store is the part of the conversation store a turn needs.
type Store interface {
	Get(ctx context.Context, id string) (domconv.Conversation, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx domconv.Tx) error) error
	CountMessages(ctx context.Context, conversationID string) (int, error)
}

// TurnEvent describes a persisted user+assistant pair.
type TurnEvent struct {
	ConversationID     string    `json:"conversation_id"`
	UserID             string    `json:"user_id,omitempty"`
	UserMessageID      string    `json:"user_message_id"`
	AssistantMessageID string    `json:"assistant_message_id"`
	VenueIDs           []string  `json:"venue_ids"`
	HasLocation        bool      `json:"has_location"`
	Model              string    `json:"model,omitempty"`
	At                 time.Time `json:"at"`
}
