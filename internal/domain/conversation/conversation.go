package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// DefaultTitle is used when a conversation is created without a title.
const DefaultTitle = "Cuộc hội thoại mới"

// MaxTitleLength is the maximum title length in runes.
const MaxTitleLength = 255

// Default quota limits.
const (
	MaxActiveConversations     = 3
	MaxMessagesPerConversation = 10
)

// State is the lifecycle state of a conversation. A missing row is the third, implicit state.
type State string

const (
	// StateActive conversations count toward the user's quota and are listed.
	StateActive State = "active"
	// StateInactive conversations are soft-deleted. Terminal.
	StateInactive State = "inactive"
)

// Conversation is a chat thread owned by one user.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// IsActive reports whether the conversation can still accept turns.
func (c *Conversation) IsActive() bool { return c.State == StateActive }

// Role tags who wrote a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a stored chat message with the venues it was grounded on.
type Message struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	Role           Role                 `json:"role"`
	Content        string               `json:"content"`
	CreatedAt      time.Time            `json:"created_at"`
	Related        []venue.RankedResult `json:"related_locations,omitempty"`
}

// Turn is the pending user+assistant pair written atomically after a reply.
type Turn struct {
	UserText      string
	AssistantText string
	Results       []venue.RankedResult
}

// NormalizeTitle trims the title, substitutes the default for blank input and
// rejects overlong titles.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle, nil
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("title too long (max %d)", MaxTitleLength)
	}
	return title, nil
}

// Limits are the quota caps.
type Limits struct {
	MaxActiveConversations     int
	MaxMessagesPerConversation int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{
		MaxActiveConversations:     MaxActiveConversations,
		MaxMessagesPerConversation: MaxMessagesPerConversation,
	}
}
