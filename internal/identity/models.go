package identity

import (
	"time"

	id "canguard/pkg/domain"
)

// Record binds a user account to its DID and the content identifier of its
// verification document. One record per user, created exactly once.
type Record struct {
	UserID      id.UserID `json:"user_id"`
	DID         id.DID    `json:"did"`
	DocumentCID id.CID    `json:"document_cid"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is the minimal verification document stored in the content store.
// Versioned tagged record, not an open-ended map, so resolution stays
// deterministic.
type Document struct {
	SchemaVersion       int                  `json:"schema_version"`
	DID                 id.DID               `json:"did"`
	Created             time.Time            `json:"created"`
	VerificationMethods []VerificationMethod `json:"verification_methods"`
}

// VerificationMethod references one public key usable to verify proofs
// issued under the DID.
type VerificationMethod struct {
	ID              string `json:"id"` // "<did>#key-1"
	Type            string `json:"type"`
	Controller      id.DID `json:"controller"`
	PublicKeyBase64 string `json:"public_key_base64"`
}

// DocumentSchemaVersion is the current Document wire schema.
const DocumentSchemaVersion = 1

// VerificationMethodEd25519 is the only key type minted today.
const VerificationMethodEd25519 = "Ed25519VerificationKey2020"
