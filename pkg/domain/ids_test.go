package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "canguard/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRequestID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseDID(t *testing.T) {
	t.Run("rejects foreign methods", func(t *testing.T) {
		_, err := ParseDID("did:web:example.com")
		require.Error(t, err)
	})

	t.Run("rejects bare prefix", func(t *testing.T) {
		_, err := ParseDID(DIDMethodPrefix)
		require.Error(t, err)
	})

	t.Run("accepts minted identifiers", func(t *testing.T) {
		did, err := ParseDID(DIDMethodPrefix + "9f2c41aa")
		require.NoError(t, err)
		assert.Equal(t, DID("did:canguard:9f2c41aa"), did)
	})
}

func TestParseCID(t *testing.T) {
	valid := strings.Repeat("ab12", 16)

	t.Run("accepts 64-char lowercase hex", func(t *testing.T) {
		cid, err := ParseCID(valid)
		require.NoError(t, err)
		assert.Equal(t, CID(valid), cid)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseCID(valid[:63])
		require.Error(t, err)
	})

	t.Run("rejects uppercase hex", func(t *testing.T) {
		_, err := ParseCID(strings.ToUpper(valid))
		require.Error(t, err)
	})
}
