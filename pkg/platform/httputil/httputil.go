// Package httputil centralizes JSON encoding and error translation for HTTP
// handlers so every endpoint speaks the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"arx/internal/policy"
	"arx/pkg/platform/sentinel"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response. Internal
// failures never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]string{"error": "internal_error"}

	var perr *policy.Error
	switch {
	case errors.As(err, &perr):
		status = http.StatusUnprocessableEntity
		body = map[string]string{
			"error":             "policy_rejected",
			"error_description": string(perr.Reason),
		}
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrPathNotFound):
		status = http.StatusNotFound
		body = map[string]string{"error": "not_found"}
	case errors.Is(err, sentinel.ErrConflict):
		status = http.StatusConflict
		body = map[string]string{"error": "conflict"}
	case errors.Is(err, sentinel.ErrExpired):
		status = http.StatusUnauthorized
		body = map[string]string{"error": "expired"}
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusServiceUnavailable
		body = map[string]string{"error": "unavailable"}
	}
	WriteJSON(w, status, body)
}

// Decode reads a JSON request body into T, writing a 400 on failure. The
// bool reports whether decoding succeeded.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "bad_request",
			"error_description": "malformed JSON body",
		})
		return req, false
	}
	return req, true
}
