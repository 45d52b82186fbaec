// Package domain holds typed identifiers shared across features. Typed IDs
// make cross-wiring a compile error instead of a runtime bug.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "canguard/pkg/domain-errors"
)

// UUID-backed identifiers. Construct via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
type (
	UserID    uuid.UUID
	SessionID uuid.UUID
	RequestID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the identifier is the nil UUID.
func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewRequestID allocates a fresh request identifier for a grant.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID validates and converts an external user ID string.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	return UserID(parsed), err
}

// ParseSessionID validates and converts an external session ID string.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session id")
	return SessionID(parsed), err
}

// ParseRequestID validates and converts an external grant request ID string.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw, "request id")
	return RequestID(parsed), err
}

// DID is a decentralized identifier bound to verification key material,
// e.g. "did:canguard:9f2c...".
type DID string

// DIDMethodPrefix is the method prefix for identifiers minted here.
const DIDMethodPrefix = "did:canguard:"

// ParseDID validates the method prefix of an external DID string.
func ParseDID(raw string) (DID, error) {
	if !strings.HasPrefix(raw, DIDMethodPrefix) || len(raw) == len(DIDMethodPrefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did must use the did:canguard method")
	}
	return DID(raw), nil
}

func (d DID) String() string { return string(d) }

// CID is a content identifier: the hex SHA-256 digest of an immutable blob
// in the content-addressed store.
type CID string

const cidHexLength = 64

// ParseCID validates the digest shape of an external content identifier.
func ParseCID(raw string) (CID, error) {
	if len(raw) != cidHexLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "content id must be a 64-character hex digest")
	}
	for _, r := range raw {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "content id must be lowercase hex")
		}
	}
	return CID(raw), nil
}

func (c CID) String() string { return string(c) }
