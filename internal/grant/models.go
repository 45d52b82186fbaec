package grant

import (
	"time"

	id "canguard/pkg/domain"
)

// Payload is the signed body of a permission grant: a scoped, time-boxed
// capability over a fixed set of content identifiers. Everything a verifier
// checks is inside the payload; the use counter lives in the use store so
// multiple service instances stay consistent.
type Payload struct {
	SchemaVersion int             `json:"schema_version"`
	RequestID     id.RequestID    `json:"request_id"`
	IssuerDID     id.DID          `json:"issuer_did"`
	HolderDID     id.DID          `json:"holder_did"`
	Resources     []id.CID        `json:"resources"`
	Purpose       id.GrantPurpose `json:"purpose"`
	MaxUses       int             `json:"max_uses"`
	IssuedAt      time.Time       `json:"issued_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Envelope is the wire form of a grant: the canonical payload bytes plus the
// proof signatures over exactly those bytes. Keeping the payload as raw JSON
// makes verification deterministic regardless of field ordering quirks in
// re-serialization.
type Envelope struct {
	Payload    []byte      `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

// Signature is one proof artifact binding the payload to a verification
// method of the issuer.
type Signature struct {
	Type               string `json:"type"`
	VerificationMethod string `json:"verification_method"`
	SignatureBase64    string `json:"signature_base64"`
}

// PayloadSchemaVersion is the current grant payload wire schema.
const PayloadSchemaVersion = 1

// SignatureTypeEd25519 is the only proof type issued today.
const SignatureTypeEd25519 = "Ed25519Signature2020"

// Usable reports whether the grant is inside its temporal and use budget.
// Expiry at exactly ExpiresAt is not usable.
func (p Payload) Usable(now time.Time, usesConsumed int) bool {
	return now.Before(p.ExpiresAt) && usesConsumed < p.MaxUses
}
