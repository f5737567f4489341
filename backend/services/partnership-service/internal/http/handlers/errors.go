package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/partnership-service/internal/service"
)

var errInvalidID = &service.Error{Kind: service.ErrBadRequest, Message: "Invalid partnership ID"}

// ErrorWriter renders lead failures in the shared envelope.
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
		httpx.Invalid(w, verr, true)
		return
	}
	if errors.Is(err, httpx.ErrInvalidJSON) {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	var dup *service.DuplicateError
	if errors.As(err, &dup) {
		httpx.JSON(w, http.StatusConflict, map[string]interface{}{
			"success":      false,
			"message":      dup.Error(),
			"submissionId": dup.SubmissionID,
		})
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
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
