// Package anthropic adapts the Anthropic Messages API for chat generation.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	"github.com/kailas-cloud/cospa/internal/logger"
	"github.com/kailas-cloud/cospa/internal/metrics"
)

const provider = "anthropic"

// Config holds the client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// Generator produces chat replies through Messages.New.
type Generator struct {
	client   *anthropic.Client
	defaults llm.Options
	logger   *zap.Logger
}

// NewGenerator creates an Anthropic generator. Empty model defaults to Claude 3.5 Sonnet.
func NewGenerator(cfg Config, defaults llm.Options) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required: %w", domain.ErrInvalidInput)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		client:   anthropic.NewClient(opts...),
		defaults: defaults.WithDefaults(llm.DefaultAnthropicModel),
		logger:   log,
	}, nil
}

// Generate sends the conversation and concatenates the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Completion, error) {
	if opts.Model == "" {
		opts.Model = g.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = g.defaults.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = g.defaults.MaxTokens
	}

	turns := toTurns(messages)
	if len(turns) == 0 {
		return llm.Completion{}, fmt.Errorf("no messages to send: %w", domain.ErrGenerationFailure)
	}
	params := make([]anthropic.MessageParam, len(turns))
	for i, t := range turns {
		params[i] = anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(t.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(t.Content),
				},
			}),
		}
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(opts.Model),
		MaxTokens:   anthropic.F(int64(opts.MaxTokens)),
		Temperature: anthropic.F(opts.Temperature),
		Messages:    anthropic.F(params),
	})
	metrics.GenerationRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, "error").Inc()
		logger.FromContextOr(ctx, g.logger).Error("Anthropic message failed",
			zap.String("model", opts.Model),
			zap.Error(err),
		)
		return llm.Completion{}, fmt.Errorf("anthropic messages: %w: %w", domain.ErrGenerationFailure, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content.WriteString(block.Text)
		}
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, "success").Inc()
	metrics.GenerationTokensTotal.WithLabelValues(provider, "input").Add(float64(resp.Usage.InputTokens))
	metrics.GenerationTokensTotal.WithLabelValues(provider, "output").Add(float64(resp.Usage.OutputTokens))

	return llm.Completion{
		Content:    content.String(),
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
	}, nil
}

// toTurns reshapes messages into the alternating user/assistant sequence the
// Messages API accepts. System text is prepended to the first user turn,
// consecutive turns of one role are merged, and a leading assistant turn is dropped.
func toTurns(messages []llm.Message) []llm.Message {
	var system []string
	var turns []llm.Message
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
			continue
		case llm.RoleAssistant:
			if len(turns) == 0 {
				continue
			}
		case llm.RoleUser:
		default:
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == m.Role {
			turns[n-1].Content += "\n\n" + m.Content
			continue
		}
		turns = append(turns, m)
	}

	if len(system) > 0 {
		prefix := strings.Join(system, "\n\n")
		if len(turns) == 0 {
			return []llm.Message{{Role: llm.RoleUser, Content: prefix}}
		}
		turns[0].Content = prefix + "\n\n" + turns[0].Content
	}
	return turns
}
