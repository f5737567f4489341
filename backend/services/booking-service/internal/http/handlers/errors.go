package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/booking-service/internal/service"
)

// ErrorWriter renders service failures in the shared envelope.
type ErrorWriter struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorWriter builds an ErrorWriter. With debug set, unexpected errors are echoed to the client.
func NewErrorWriter(logger *zap.Logger, debug bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, debug: debug}
}

// Write maps err to a status and message.
func (e *ErrorWriter) Write(w http.ResponseWriter, err error) {
	e.WriteWith(w, err, "")
}

// WriteWith is Write with a custom message for unexpected failures.
func (e *ErrorWriter) WriteWith(w http.ResponseWriter, err error, fallback string) {
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
		status := statusOf(serr.Kind)
		if status == http.StatusBadGateway {
			e.logger.Warn("upstream failure", zap.Error(err))
			body := map[string]interface{}{"success": false, "message": serr.Message}
			if e.debug {
				body["error"] = err.Error()
			}
			httpx.JSON(w, status, body)
			return
		}
		httpx.Fail(w, status, serr.Message)
		return
	}

	e.logger.Error("request failed", zap.Error(err))
	httpx.Internal(w, fallback, err, e.debug)
}

func statusOf(kind error) int {
	switch kind {
	case service.ErrBadRequest:
		return http.StatusBadRequest
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrConflict:
		return http.StatusConflict
	case service.ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a positive integer path variable. ok is false for malformed ids.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
