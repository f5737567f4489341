package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/auth-service/internal/service"
)

// ErrorWriter renders auth failures in the shared envelope.
type ErrorWriter struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorWriter builds an ErrorWriter.
func NewErrorWriter(logger *zap.Logger, debug bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, debug: debug}
}

// Write maps err to a status and message. fallback replaces the generic 500 message.
func (e *ErrorWriter) Write(w http.ResponseWriter, err error, fallback string) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		httpx.Invalid(w, verr, false)
		return
	}
	if errors.Is(err, httpx.ErrInvalidJSON) {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	var serr *service.Error
	if errors.As(err, &serr) {
		httpx.Fail(w, statusOf(serr.Kind), serr.Message)
		return
	}

	e.logger.Error("request failed", zap.Error(err))
	httpx.Internal(w, fallback, err, e.debug)
}

func statusOf(kind error) int {
	switch kind {
	case service.ErrBadRequest:
		return http.StatusBadRequest
	case service.ErrUnauthorized:
		return http.StatusUnauthorized
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
