package conversation

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/logger"
)

// QuotaManager enforces the active conversation and message caps.
// Checks that gate a write must run against the Tx the write happens in.
type QuotaManager struct {
	limits     domconv.Limits
	rejections *prometheus.CounterVec
	logger     *zap.Logger
}

// NewQuotaManager creates a quota manager. Non-positive limits fall back to the
// defaults. rejections is labelled by kind and may be nil.
func NewQuotaManager(limits domconv.Limits, rejections *prometheus.CounterVec, log *zap.Logger) *QuotaManager {
	def := domconv.DefaultLimits()
	if limits.MaxActiveConversations <= 0 {
		limits.MaxActiveConversations = def.MaxActiveConversations
	}
	if limits.MaxMessagesPerConversation <= 0 {
		limits.MaxMessagesPerConversation = def.MaxMessagesPerConversation
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QuotaManager{limits: limits, rejections: rejections, logger: log}
}

// Limits returns the effective caps.
func (q *QuotaManager) Limits() domconv.Limits { return q.limits }

// CanCreateConversation reports whether the user is below the active conversation cap.
func (q *QuotaManager) CanCreateConversation(ctx context.Context, c ActiveCounter, userID string) (bool, error) {
	n, err := c.CountActive(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count active conversations: %w", err)
	}
	return n < q.limits.MaxActiveConversations, nil
}

// CanAcceptMessage reports whether the conversation can take another turn.
// The stored count is compared before the pair is written, so a conversation
// at max-1 messages still accepts a turn and ends one above the cap.
func (q *QuotaManager) CanAcceptMessage(ctx context.Context, c MessageCounter, conversationID string) (bool, error) {
	n, err := c.CountMessages(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("count messages: %w", err)
	}
	return n < q.limits.MaxMessagesPerConversation, nil
}

// EnsureCanCreate returns a ConversationLimit quota error when the cap is reached.
func (q *QuotaManager) EnsureCanCreate(ctx context.Context, c ActiveCounter, userID string) error {
	ok, err := q.CanCreateConversation(ctx, c, userID)
	if err != nil {
		return err
	}
	if !ok {
		return q.reject(ctx, domain.ConversationLimit, q.limits.MaxActiveConversations, zap.String("user_id", userID))
	}
	return nil
}

// EnsureCanAccept returns a MessageLimit quota error when the cap is reached.
func (q *QuotaManager) EnsureCanAccept(ctx context.Context, c MessageCounter, conversationID string) error {
	ok, err := q.CanAcceptMessage(ctx, c, conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return q.reject(ctx, domain.MessageLimit, q.limits.MaxMessagesPerConversation,
			zap.String("conversation_id", conversationID))
	}
	return nil
}

func (q *QuotaManager) reject(ctx context.Context, kind domain.QuotaKind, limit int, field zap.Field) error {
	if q.rejections != nil {
		q.rejections.WithLabelValues(string(kind)).Inc()
	}
	logger.FromContextOr(ctx, q.logger).Info("Quota rejected", zap.String("kind", string(kind)), zap.Int("limit", limit), field)
	return domain.NewQuotaExceeded(kind, limit)
}
