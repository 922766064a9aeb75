// Package llm holds provider-neutral chat generation types.
package llm

// Role of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a generation provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tune a generation call. Zero values use the provider defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completion is a generation result.
type Completion struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
}

// Default generation settings.
const (
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 800
)

// WithDefaults fills zero fields.
func (o Options) WithDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}
