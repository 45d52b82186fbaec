// Package domainerrors defines coded errors for the subsystem's public
// failure taxonomy. Services return these; transport translates them into
// stable JSON envelopes without leaking internals.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code. Codes are part of the API
// contract; renaming one is a breaking change.
type Code string

const (
	// Caller errors.
	CodeBadRequest             Code = "bad_request"
	CodeInvalidInput           Code = "invalid_input"
	CodeUnauthenticated        Code = "unauthenticated"
	CodeInvalidStep            Code = "invalid_step"
	CodeTooManyAttempts        Code = "too_many_attempts"
	CodeScopeViolation         Code = "scope_violation"
	CodeInvalidTTL             Code = "invalid_ttl"
	CodeInvalidSignatureFormat Code = "invalid_signature_format"
	CodeGrantExpired           Code = "grant_expired"
	CodeGrantExhausted         Code = "grant_exhausted"
	CodeAlreadyInitialized     Code = "already_initialized"
	CodeNotFound               Code = "not_found"

	// Analysis outcomes.
	CodeNoUsableData      Code = "no_usable_data"
	CodeDecryptionFailure Code = "decryption_failure"

	// Infrastructure errors. Retryable by callers, unlike the codes above.
	CodeStoreUnavailable Code = "store_unavailable"
	CodeInternal         Code = "internal_error"
)

// Error carries a code plus a human-readable description. The description is
// safe to show to callers except for CodeInternal, where transport drops it.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap preserves the cause chain for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a coded domain error.
func New(code Code, description string) error {
	return &Error{Code: code, Description: description}
}

// Newf builds a coded domain error with a formatted description.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and description to an underlying error.
func Wrap(code Code, description string, err error) error {
	return &Error{Code: code, Description: description, cause: err}
}

// As extracts the outermost coded error, if any.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf extracts the domain error code, defaulting to CodeInternal for
// errors outside the taxonomy so unknown failures never map to 4xx.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the failure is an infrastructure fault the
// caller may retry, as opposed to a caller error that will fail again.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeStoreUnavailable, CodeInternal:
		return true
	}
	return false
}
