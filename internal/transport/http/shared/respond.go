// Package shared holds the response helpers every HTTP handler uses, so all
// endpoints emit the same JSON envelopes and the same error translation.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "communityhub/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// errorBody is the uniform error envelope. Message is caller-safe: services
// construct domain errors with messages that never leak identifiers the
// caller is not allowed to see.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error to its HTTP status and envelope.
// Unrecognized errors collapse to a plain 500 without detail.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Message
	}

	WriteJSON(w, dErrors.HTTPStatus(code), body)
}
