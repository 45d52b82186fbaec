// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes and the same error translation.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "canguard/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a stable JSON envelope:
// {"error": <code>, "error_description": <description>}. Internal errors
// omit the description so infrastructure details never reach callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := dErrors.As(err); ok {
			body["error_description"] = de.Description
		}
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// ToHTTPStatus maps domain error codes onto HTTP statuses.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeInvalidTTL,
		dErrors.CodeInvalidStep, dErrors.CodeInvalidSignatureFormat:
		return http.StatusBadRequest
	case dErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeScopeViolation, dErrors.CodeGrantExpired, dErrors.CodeGrantExhausted,
		dErrors.CodeTooManyAttempts:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyInitialized:
		return http.StatusConflict
	case dErrors.CodeNoUsableData, dErrors.CodeDecryptionFailure:
		return http.StatusUnprocessableEntity
	case dErrors.CodeStoreUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Decode parses a JSON request body into T, returning a coded bad_request
// error on malformed input.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
