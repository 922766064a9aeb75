package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
	"github.com/kailas-cloud/cospa/internal/logger"
	convuc "github.com/kailas-cloud/cospa/internal/usecase/conversation"
	"github.com/kailas-cloud/cospa/internal/usecase/search"
)

// DefaultResultCount is the number of venues a reply is grounded on.
const DefaultResultCount = 5

// MaxMessageLength caps a user message in runes.
const MaxMessageLength = 4000

var tracer = otel.Tracer("github.com/kailas-cloud/cospa/internal/usecase/chat")

// Request is one user message.
type Request struct {
	UserID         string
	ConversationID string // empty: stateless turn, nothing is persisted
	Message        string
	History        []llm.Message
	UserLocation   *geo.Coordinate
}

// Response is the assistant reply and the venues it was grounded on.
type Response struct {
	Reply              string
	Results            []venue.RankedResult
	UserMessageID      string
	AssistantMessageID string
}

// Options configure a chat service.
type Options struct {
	ResultCount int
	Generation  llm.Options
}

// Service runs chat turns.
type Service struct {
	store     Store
	quota     *convuc.QuotaManager
	search    Searcher
	gen       Generator
	publisher EventPublisher
	opts      Options
	logger    *zap.Logger
}

// New creates a chat service. publisher may be nil.
func New(
	store Store, quota *convuc.QuotaManager, searcher Searcher, gen Generator,
	publisher EventPublisher, opts Options, log *zap.Logger,
) *Service {
	if opts.ResultCount <= 0 {
		opts.ResultCount = DefaultResultCount
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		quota:     quota,
		search:    searcher,
		gen:       gen,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

// Reply answers a message. With a conversation id the quota is checked up
// front, and again inside the transaction that stores the pair, so two racing
// turns cannot both pass the cap. No lock is held while searching or generating.
func (s *Service) Reply(ctx context.Context, req Request) (Response, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return Response{}, fmt.Errorf("message is required: %w", domain.ErrInvalidInput)
	}
	if len([]rune(req.Message)) > MaxMessageLength {
		return Response{}, fmt.Errorf("message too long (max %d): %w", MaxMessageLength, domain.ErrInvalidInput)
	}
	if req.UserLocation != nil && !req.UserLocation.Valid() {
		return Response{}, fmt.Errorf("user location %s out of range: %w", req.UserLocation, domain.ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "chat.Reply")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("chat.persisted", req.ConversationID != ""),
		attribute.Bool("chat.has_location", req.UserLocation != nil),
	)

	resp, err := s.reply(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply failed")
	}
	return resp, err
}

func (s *Service) reply(ctx context.Context, req Request) (Response, error) {
	if req.ConversationID != "" {
		c, err := s.store.Get(ctx, req.ConversationID)
		if err != nil {
			return Response{}, fmt.Errorf("load conversation: %w", err)
		}
		if !c.IsActive() {
			return Response{}, fmt.Errorf("conversation %s is inactive: %w", c.ID, domain.ErrNotFound)
		}
		if err := s.quota.EnsureCanAccept(ctx, s.store, req.ConversationID); err != nil {
			return Response{}, fmt.Errorf("check message quota: %w", err)
		}
	}

	results, err := s.search.SearchOrEmpty(ctx, req.Message, s.opts.ResultCount, req.UserLocation)
	if err != nil {
		return Response{}, fmt.Errorf("search venues: %w", err)
	}

	completion, err := s.gen.Generate(ctx, BuildMessages(results, req), s.opts.Generation)
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
		}
		return Response{}, fmt.Errorf("generate reply: %w", err)
	}
	if strings.TrimSpace(completion.Content) == "" {
		return Response{}, fmt.Errorf("generate reply: empty completion: %w", domain.ErrGenerationFailure)
	}

	resp := Response{Reply: completion.Content, Results: results}
	if req.ConversationID == "" {
		return resp, nil
	}

	turn := domconv.Turn{UserText: req.Message, AssistantText: completion.Content, Results: results}
	userMsg, assistantMsg, err := s.persist(ctx, req.ConversationID, turn)
	if err != nil {
		return Response{}, fmt.Errorf("save turn: %w", err)
	}
	resp.UserMessageID = userMsg.ID
	resp.AssistantMessageID = assistantMsg.ID

	s.publish(ctx, TurnEvent{
		ConversationID:     req.ConversationID,
		UserID:             req.UserID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		VenueIDs:           venueIDs(results),
		HasLocation:        req.UserLocation != nil,
		Model:              completion.Model,
		At:                 time.Now().UTC(),
	})
	return resp, nil
}

// persist writes the pair, its attribution and the updated_at bump as one unit.
func (s *Service) persist(ctx context.Context, conversationID string, turn domconv.Turn) (domconv.Message, domconv.Message, error) {
	var userMsg, assistantMsg domconv.Message
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx domconv.Tx) error {
		if _, err := convuc.LockActive(ctx, tx, conversationID); err != nil {
			return err
		}
		if err := s.quota.EnsureCanAccept(ctx, tx, conversationID); err != nil {
			return err
		}

		var err error
		if userMsg, err = tx.InsertMessage(ctx, conversationID, domconv.RoleUser, turn.UserText); err != nil {
			return fmt.Errorf("insert user message: %w", err)
		}
		if assistantMsg, err = tx.InsertMessage(ctx, conversationID, domconv.RoleAssistant, turn.AssistantText); err != nil {
			return fmt.Errorf("insert assistant message: %w", err)
		}
		if err := tx.InsertAttribution(ctx, assistantMsg.ID, turn.Results); err != nil {
			return fmt.Errorf("insert attribution: %w", err)
		}
		if err := tx.Touch(ctx, conversationID); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return domconv.Message{}, domconv.Message{}, err
	}
	assistantMsg.Related = turn.Results
	return userMsg, assistantMsg, nil
}

func (s *Service) publish(ctx context.Context, ev TurnEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTurn(ctx, ev); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Turn event publish failed",
			zap.String("conversation_id", ev.ConversationID),
			zap.Error(err),
		)
	}
}

// BuildMessages assembles the generation prompt: grounding system message,
// prior turns, then the new user message. History entries with other roles
// or blank content are skipped.
func BuildMessages(results []venue.RankedResult, req Request) []llm.Message {
	msgs := make([]llm.Message, 0, len(req.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: search.BuildGroundingContext(results, req.UserLocation)})
	for _, m := range req.History {
		if (m.Role != llm.RoleUser && m.Role != llm.RoleAssistant) || strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Message})
}

func venueIDs(results []venue.RankedResult) []string {
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	return ids
}
