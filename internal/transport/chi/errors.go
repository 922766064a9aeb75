package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/logger"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeNotFound          ErrorCode = "not_found"
	CodeConflict          ErrorCode = "conflict"
	CodeConversationLimit ErrorCode = ErrorCode(domain.ConversationLimit)
	CodeMessageLimit      ErrorCode = ErrorCode(domain.MessageLimit)
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeUnavailable       ErrorCode = "service_unavailable"
	CodeUpstreamError     ErrorCode = "upstream_error"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Limit   int       `json:"limit,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// defaultErrorHandlers is the ordered mapping of domain errors to responses.
var defaultErrorHandlers = []errorHandler{
	quotaHandler,
	conflictHandler,
	sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrPersistence, http.StatusServiceUnavailable, CodeUnavailable),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeUpstreamError),
	sentinelHandler(domain.ErrGenerationFailure, http.StatusBadGateway, CodeUpstreamError),
	sentinelHandler(domain.ErrRetrievalFailure, http.StatusBadGateway, CodeUpstreamError),
}

// writeJSON encodes v before committing the status, so an unencodable body becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(ErrorResponse{Code: CodeInternalError, Message: "response encoding failed"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel text reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if sentinel == domain.ErrInvalidInput {
			// validation messages are built from request fields only
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// quotaHandler answers 429 with the cap kind as code and the localized text.
func quotaHandler(w http.ResponseWriter, err error) bool {
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return false
	}
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Code:    ErrorCode(qe.Kind),
		Message: qe.UserMessage(),
		Limit:   qe.Limit,
	})
	return true
}

// conflictHandler answers 409 with the conflict's user-facing text.
func conflictHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrConflict) {
		return false
	}
	msg := domain.ErrConflict.Error()
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		msg = ce.Message
	}
	writeError(w, http.StatusConflict, CodeConflict, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
