package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/llm"
	"github.com/kailas-cloud/cospa/internal/logger"
	"github.com/kailas-cloud/cospa/internal/metrics"
)

// Generator produces chat replies through the chat completions API.
type Generator struct {
	client   *openai.Client
	defaults llm.Options
	provider string
	logger   *zap.Logger
}

// NewGenerator creates a chat generator. Empty model defaults to gpt-4o.
func NewGenerator(cfg *Config, defaults llm.Options) *Generator {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if defaults.Model == "" {
		defaults.Model = cfg.Model
	}
	return &Generator{
		client:   newClient(cfg),
		defaults: defaults.WithDefaults(llm.DefaultOpenAIModel),
		provider: provider,
		logger:   log,
	}
}

// Generate sends messages and returns the first choice.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Completion, error) {
	opts = g.merge(opts)

	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	metrics.GenerationRequestDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, "error").Inc()
		logger.FromContextOr(ctx, g.logger).Error("Chat completion failed",
			zap.String("provider", g.provider),
			zap.String("model", opts.Model),
			zap.Error(err),
		)
		return llm.Completion{}, parseAPIError("generation", err)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, "error").Inc()
		return llm.Completion{}, fmt.Errorf("chat completion without choices: %w", domain.ErrGenerationFailure)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, "success").Inc()
	metrics.GenerationTokensTotal.WithLabelValues(g.provider, "input").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(g.provider, "output").Add(float64(resp.Usage.CompletionTokens))

	return llm.Completion{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: string(resp.Choices[0].FinishReason),
	}, nil
}

func (g *Generator) merge(opts llm.Options) llm.Options {
	if opts.Model == "" {
		opts.Model = g.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = g.defaults.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = g.defaults.MaxTokens
	}
	return opts
}
