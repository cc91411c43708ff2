package chi

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/logger"
	"github.com/kailas-cloud/cinemuse/internal/validation"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeNotFound            ErrorCode = "not_found"
	CodeAlreadyExists       ErrorCode = "already_exists"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, CodeProviderUnavailable),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports every failed field of a request DTO.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false
	}
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: verr.Error(),
		Fields:  fields,
	})
	return true
}

// safeDomainMessage returns a message for the client without exposing internals.
// ErrInput messages are written for users and pass through as is.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInput) {
		return err.Error()
	}
	for _, s := range []error{domain.ErrNotFound, domain.ErrAlreadyExists, domain.ErrProviderUnavailable} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
