// Package grant issues and verifies permission grants: signed, time-boxed,
// use-limited capabilities over a fixed set of encrypted behavioral data
// resources. Verification is read-only; consuming a use is a separate,
// atomic step so a failed analysis run never burns budget.
package grant

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"canguard/internal/grant/store"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/sentinel"
	"canguard/pkg/requestcontext"
)

// maxGrantTTL caps how far into the future a grant may reach.
const maxGrantTTL = 24 * time.Hour

// IdentityDirectory is the slice of the identity registry the grant
// service needs: issuer lookup on issue, key resolution on verify.
type IdentityDirectory interface {
	DIDOf(ctx context.Context, userID id.UserID) (id.DID, error)
	VerificationKey(ctx context.Context, did id.DID) (ed25519.PublicKey, string, error)
}

// ScopeChecker reports which requested resources the user does not own.
type ScopeChecker interface {
	Missing(ctx context.Context, userID id.UserID, resources []id.CID) ([]id.CID, error)
}

// SignerSource hands out the issuer's Ed25519 signing key.
type SignerSource interface {
	SigningKeyFor(ctx context.Context, userID id.UserID) (ed25519.PrivateKey, error)
}

// IssueRequest carries the caller-controlled parameters of a new grant.
type IssueRequest struct {
	HolderDID id.DID
	Resources []id.CID
	Purpose   id.GrantPurpose
	TTL       time.Duration
	MaxUses   int
}

// Service mediates the grant lifecycle.
type Service struct {
	identities IdentityDirectory
	scope      ScopeChecker
	signers    SignerSource
	uses       store.UseStore
	logger     *slog.Logger
}

func NewService(identities IdentityDirectory, scope ScopeChecker, signers SignerSource, uses store.UseStore, logger *slog.Logger) (*Service, error) {
	if identities == nil {
		return nil, fmt.Errorf("identity directory is required")
	}
	if scope == nil {
		return nil, fmt.Errorf("scope checker is required")
	}
	if signers == nil {
		return nil, fmt.Errorf("signer source is required")
	}
	if uses == nil {
		return nil, fmt.Errorf("use store is required")
	}
	return &Service{identities: identities, scope: scope, signers: signers, uses: uses, logger: logger}, nil
}

// Issue mints a signed grant for resources the issuer owns. The envelope is
// returned to the caller; only the use counter is persisted server-side.
func (s *Service) Issue(ctx context.Context, issuerUserID id.UserID, req IssueRequest) (Envelope, error) {
	if req.TTL <= 0 || req.TTL > maxGrantTTL {
		return Envelope{}, dErrors.New(dErrors.CodeInvalidTTL, "grant ttl must be positive and at most 24h")
	}
	if req.MaxUses < 1 {
		return Envelope{}, dErrors.New(dErrors.CodeInvalidInput, "grant must allow at least one use")
	}
	if len(req.Resources) == 0 {
		return Envelope{}, dErrors.New(dErrors.CodeInvalidInput, "grant must cover at least one resource")
	}
	if _, err := id.ParseGrantPurpose(req.Purpose.String()); err != nil {
		return Envelope{}, err
	}
	if _, err := id.ParseDID(req.HolderDID.String()); err != nil {
		return Envelope{}, err
	}

	missing, err := s.scope.Missing(ctx, issuerUserID, req.Resources)
	if err != nil {
		return Envelope{}, dErrors.Wrap(dErrors.CodeInternal, "check resource ownership", err)
	}
	if len(missing) > 0 {
		return Envelope{}, dErrors.Newf(dErrors.CodeScopeViolation,
			"%d requested resources are not owned by the issuer", len(missing))
	}

	issuerDID, err := s.identities.DIDOf(ctx, issuerUserID)
	if err != nil {
		return Envelope{}, err
	}
	_, methodRef, err := s.identities.VerificationKey(ctx, issuerDID)
	if err != nil {
		return Envelope{}, err
	}
	signingKey, err := s.signers.SigningKeyFor(ctx, issuerUserID)
	if err != nil {
		return Envelope{}, dErrors.Wrap(dErrors.CodeInternal, "load signing key", err)
	}

	now := requestcontext.Now(ctx)
	payload := Payload{
		SchemaVersion: PayloadSchemaVersion,
		RequestID:     id.NewRequestID(),
		IssuerDID:     issuerDID,
		HolderDID:     req.HolderDID,
		Resources:     req.Resources,
		Purpose:       req.Purpose,
		MaxUses:       req.MaxUses,
		IssuedAt:      now,
		ExpiresAt:     now.Add(req.TTL),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, dErrors.Wrap(dErrors.CodeInternal, "encode grant payload", err)
	}

	sig := ed25519.Sign(signingKey, raw)
	envelope := Envelope{
		Payload: raw,
		Signatures: []Signature{{
			Type:               SignatureTypeEd25519,
			VerificationMethod: methodRef,
			SignatureBase64:    base64.StdEncoding.EncodeToString(sig),
		}},
	}

	if err := s.uses.Register(ctx, payload.RequestID, req.MaxUses); err != nil {
		return Envelope{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "register grant use budget", err)
	}

	s.logger.InfoContext(ctx, "grant issued",
		"request_id", requestcontext.RequestID(ctx),
		"grant_id", payload.RequestID,
		"issuer_did", issuerDID,
		"holder_did", req.HolderDID,
		"purpose", req.Purpose,
		"resources", len(req.Resources),
		"max_uses", req.MaxUses,
		"expires_at", payload.ExpiresAt,
	)
	return envelope, nil
}

// Verify checks the envelope structurally and cryptographically and returns
// the authenticated payload. It never mutates the use counter; pair with
// ConsumeUse once the guarded work has actually happened.
func (s *Service) Verify(ctx context.Context, envelope Envelope) (Payload, error) {
	payload, sig, err := validateEnvelope(envelope)
	if err != nil {
		return Payload{}, err
	}

	key, methodRef, err := s.identities.VerificationKey(ctx, payload.IssuerDID)
	if err != nil {
		return Payload{}, err
	}
	if sig.VerificationMethod != methodRef {
		return Payload{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "unknown verification method")
	}
	rawSig, err := base64.StdEncoding.DecodeString(sig.SignatureBase64)
	if err != nil || len(rawSig) != ed25519.SignatureSize {
		return Payload{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "malformed signature encoding")
	}
	if !ed25519.Verify(key, envelope.Payload, rawSig) {
		return Payload{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "signature does not verify")
	}

	if !requestcontext.Now(ctx).Before(payload.ExpiresAt) {
		return Payload{}, dErrors.New(dErrors.CodeGrantExpired, "grant has expired")
	}

	uses, err := s.uses.Uses(ctx, payload.RequestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Payload{}, dErrors.New(dErrors.CodeNotFound, "unknown grant")
	}
	if err != nil {
		return Payload{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "read grant use counter", err)
	}
	if uses >= payload.MaxUses {
		return Payload{}, dErrors.New(dErrors.CodeGrantExhausted, "grant use budget exhausted")
	}
	return payload, nil
}

// ConsumeUse atomically burns one use of the grant. Callers must have
// verified the envelope first.
func (s *Service) ConsumeUse(ctx context.Context, requestID id.RequestID) error {
	err := s.uses.ConsumeUse(ctx, requestID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "unknown grant")
	case errors.Is(err, sentinel.ErrExhausted):
		return dErrors.New(dErrors.CodeGrantExhausted, "grant use budget exhausted")
	default:
		return dErrors.Wrap(dErrors.CodeStoreUnavailable, "consume grant use", err)
	}
}

func validateEnvelope(envelope Envelope) (Payload, Signature, error) {
	if len(envelope.Payload) == 0 {
		return Payload{}, Signature{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "empty grant payload")
	}
	if len(envelope.Signatures) == 0 {
		return Payload{}, Signature{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "grant carries no proof")
	}

	var payload Payload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return Payload{}, Signature{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "malformed grant payload")
	}
	if payload.SchemaVersion != PayloadSchemaVersion {
		return Payload{}, Signature{}, dErrors.Newf(dErrors.CodeInvalidSignatureFormat,
			"unsupported grant schema version %d", payload.SchemaVersion)
	}
	if payload.RequestID.IsZero() || payload.IssuerDID == "" || payload.HolderDID == "" ||
		len(payload.Resources) == 0 || payload.MaxUses < 1 {
		return Payload{}, Signature{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "incomplete grant payload")
	}

	var proof *Signature
	for i := range envelope.Signatures {
		if envelope.Signatures[i].Type == SignatureTypeEd25519 {
			proof = &envelope.Signatures[i]
			break
		}
	}
	if proof == nil {
		return Payload{}, Signature{}, dErrors.New(dErrors.CodeInvalidSignatureFormat, "no supported proof type")
	}
	return payload, *proof, nil
}
