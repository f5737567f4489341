// Package httpx holds the JSON envelope shared by every service: {success, data|message, ...}.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"evcharge/backend/libs/validate"
)

const maxBodyBytes = 10 << 20

// ErrInvalidJSON is returned by Decode for malformed bodies.
var ErrInvalidJSON = errors.New("httpx: invalid json")

// JSON writes payload with status.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes {success:true} merged with fields.
func OK(w http.ResponseWriter, status int, fields map[string]interface{}) {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	JSON(w, status, body)
}

// Data writes {success:true, data}.
func Data(w http.ResponseWriter, status int, data interface{}) {
	OK(w, status, map[string]interface{}{"data": data})
}

// Fail writes {success:false, message}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// Invalid writes a 400 for a validation error. When byField is set the errors are keyed by field.
func Invalid(w http.ResponseWriter, err *validate.Error, byField bool) {
	body := map[string]interface{}{"success": false, "message": err.Message}
	if byField {
		body["errors"] = err.Fields
	} else {
		body["errors"] = err.Errors
	}
	JSON(w, http.StatusBadRequest, body)
}

// Internal writes a generic 500. The underlying error is included only when debug is true.
func Internal(w http.ResponseWriter, message string, err error, debug bool) {
	if message == "" {
		message = "Something went wrong!"
	}
	body := map[string]interface{}{"success": false, "message": message}
	if debug && err != nil {
		body["error"] = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

// Decode reads a JSON body into dst. Empty bodies decode as {}.
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// IntQuery returns a positive integer query value or def.
func IntQuery(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// FloatQuery parses an optional float query value.
func FloatQuery(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

// NotFound is the catch-all route handler.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.RequestURI()))
	}
}

// MethodNotAllowed answers a known path hit with the wrong verb.
func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path))
	}
}
