package httpapi

import (
	"encoding/json"
	"net/http"

	"vlmeval/internal/manager"
	"vlmeval/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// requestError is a malformed upload or form.
type requestError struct {
	status int
	msg    string
}

func (e requestError) Error() string   { return e.msg }
func (e requestError) StatusCode() int { return e.status }

func badRequest(msg string) error { return requestError{status: http.StatusBadRequest, msg: msg} }

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps well-known manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsBackendUnavailable(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status and returns the status.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure(reasonEvaluationSlot)
	}
	writeJSONError(w, status, err.Error())
	return status
}
