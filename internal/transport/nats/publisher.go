package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/kailas-cloud/cospa/internal/metrics"
	"github.com/kailas-cloud/cospa/internal/usecase/chat"
)

// DefaultSubjectPrefix roots every turn subject.
const DefaultSubjectPrefix = "cospa.turns"

// publisher is the part of jetstream.JetStream the publisher needs.
type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends TurnEvents as JSON on "<prefix>.<conversation id>".
type Publisher struct {
	js     publisher
	prefix string
}

// NewPublisher creates a turn publisher. Empty prefix uses DefaultSubjectPrefix.
func NewPublisher(js publisher, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{js: js, prefix: prefix}
}

// Subject returns the subject a turn of the conversation is published on.
func (p *Publisher) Subject(conversationID string) string {
	return p.prefix + "." + conversationID
}

// PublishTurn implements chat.EventPublisher.
func (p *Publisher) PublishTurn(ctx context.Context, ev chat.TurnEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal turn event: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.Subject(ev.ConversationID), data,
		jetstream.WithMsgID(ev.AssistantMessageID)); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish turn event: %w", err)
	}
	metrics.EventsPublishedTotal.WithLabelValues("success").Inc()
	return nil
}

// Noop discards events. Used when no NATS url is configured.
type Noop struct{}

// PublishTurn implements chat.EventPublisher.
func (Noop) PublishTurn(context.Context, chat.TurnEvent) error { return nil }
