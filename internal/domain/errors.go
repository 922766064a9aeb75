package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing user, conversation, message or venue.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRetrievalFailure signals a failed or malformed embedding/index call.
	ErrRetrievalFailure = errors.New("retrieval failure")
	// ErrConflict signals a write that collides with an existing record, such as a second review.
	ErrConflict = errors.New("conflict")
	// ErrQuotaExceeded signals a conversation or message cap hit.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrPersistence signals an unavailable store or a transaction conflict. Retryable.
	ErrPersistence = errors.New("persistence failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailure signals a failed language-generation call.
	ErrGenerationFailure = errors.New("generation failure")
)

// QuotaKind distinguishes which cap was hit.
type QuotaKind string

const (
	// ConversationLimit is the per-user active conversation cap.
	ConversationLimit QuotaKind = "conversation_limit"
	// MessageLimit is the per-conversation message cap.
	MessageLimit QuotaKind = "message_limit"
)

// QuotaExceededError wraps ErrQuotaExceeded with the cap kind and its limit.
type QuotaExceededError struct {
	Kind  QuotaKind
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %s (limit %d)", ErrQuotaExceeded.Error(), e.Kind, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// UserMessage is the Vietnamese text shown to the user when the cap is hit.
func (e *QuotaExceededError) UserMessage() string {
	switch e.Kind {
	case ConversationLimit:
		return fmt.Sprintf("Bạn đã đạt giới hạn %d cuộc hội thoại. Vui lòng xóa cuộc hội thoại cũ để tạo mới.", e.Limit)
	case MessageLimit:
		return fmt.Sprintf("Cuộc hội thoại đã đạt giới hạn %d tin nhắn. Vui lòng tạo cuộc hội thoại mới.", e.Limit)
	default:
		return e.Error()
	}
}

// NewQuotaExceeded creates a quota error for the given kind.
func NewQuotaExceeded(kind QuotaKind, limit int) error {
	return &QuotaExceededError{Kind: kind, Limit: limit}
}

// QuotaKindOf returns the quota kind carried by err, if any.
func QuotaKindOf(err error) (QuotaKind, bool) {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return "", false
}

// IsRetrievalFailure reports whether err is a retrieval failure.
func IsRetrievalFailure(err error) bool {
	return errors.Is(err, ErrRetrievalFailure)
}

// ConflictError wraps ErrConflict with text that is safe to show the user.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return ErrConflict.Error() + ": " + e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflict creates a conflict error carrying a user-facing message.
func NewConflict(message string) error {
	return &ConflictError{Message: message}
}
