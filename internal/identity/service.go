// Package identity issues and resolves decentralized identifiers bound to a
// user account. Verification documents live in the content store; only the
// DID-to-document binding is kept locally.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/sentinel"
	"canguard/pkg/requestcontext"
)

// BlobStore is the slice of the content store client the registry needs.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (id.CID, error)
	Get(ctx context.Context, cid id.CID) ([]byte, error)
}

// RecordStore is interface-driven so in-memory and Redis implementations
// stay swappable without rewiring business code. Implementations return
// sentinel.ErrNotFound / sentinel.ErrConflict for the factual states.
type RecordStore interface {
	// Save persists a record; fails with sentinel.ErrConflict if the user
	// already has one (identity creation is one-shot per account).
	Save(ctx context.Context, record Record) error
	FindByUser(ctx context.Context, userID id.UserID) (Record, error)
	FindByDID(ctx context.Context, did id.DID) (Record, error)
}

// Service coordinates DID issuance and resolution.
type Service struct {
	records RecordStore
	blobs   BlobStore
	logger  *slog.Logger
}

func NewService(records RecordStore, blobs BlobStore, logger *slog.Logger) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Service{records: records, blobs: blobs, logger: logger}, nil
}

// CreateIdentity mints a DID for the user, stores its verification document
// in the content store, and records the binding. One-shot per account:
// a second call fails with AlreadyInitialized.
func (s *Service) CreateIdentity(ctx context.Context, userID id.UserID, publicKey ed25519.PublicKey) (Record, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "public key must be a 32-byte ed25519 key")
	}
	if _, err := s.records.FindByUser(ctx, userID); err == nil {
		return Record{}, dErrors.New(dErrors.CodeAlreadyInitialized, "user already has an identity")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "check existing identity", err)
	}

	did := deriveDID(userID)
	now := requestcontext.Now(ctx)

	doc := Document{
		SchemaVersion: DocumentSchemaVersion,
		DID:           did,
		Created:       now,
		VerificationMethods: []VerificationMethod{{
			ID:              string(did) + "#key-1",
			Type:            VerificationMethodEd25519,
			Controller:      did,
			PublicKeyBase64: base64.StdEncoding.EncodeToString(publicKey),
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "encode verification document", err)
	}

	docCID, err := s.blobs.Put(ctx, raw)
	if err != nil {
		return Record{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "store verification document", err)
	}

	record := Record{
		UserID:      userID,
		DID:         did,
		DocumentCID: docCID,
		CreatedAt:   now,
	}
	if err := s.records.Save(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent create; identity is one-shot.
			return Record{}, dErrors.New(dErrors.CodeAlreadyInitialized, "user already has an identity")
		}
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "save identity record", err)
	}

	s.logger.InfoContext(ctx, "identity created",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"did", did,
	)
	return record, nil
}

// DIDOf returns the identifier bound to a user account.
func (s *Service) DIDOf(ctx context.Context, userID id.UserID) (id.DID, error) {
	record, err := s.records.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "user has no identity")
	}
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "find identity record", err)
	}
	return record.DID, nil
}

// UserOf returns the account a DID is bound to.
func (s *Service) UserOf(ctx context.Context, did id.DID) (id.UserID, error) {
	record, err := s.records.FindByDID(ctx, did)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.UserID{}, dErrors.New(dErrors.CodeNotFound, "unknown identifier")
	}
	if err != nil {
		return id.UserID{}, dErrors.Wrap(dErrors.CodeInternal, "find identity record", err)
	}
	return record.UserID, nil
}

// Resolve fetches the verification document bound to a DID.
func (s *Service) Resolve(ctx context.Context, did id.DID) (Document, error) {
	record, err := s.records.FindByDID(ctx, did)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Document{}, dErrors.New(dErrors.CodeNotFound, "unknown identifier")
	}
	if err != nil {
		return Document{}, dErrors.Wrap(dErrors.CodeInternal, "find identity record", err)
	}

	raw, err := s.blobs.Get(ctx, record.DocumentCID)
	if err != nil {
		return Document{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "fetch verification document", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, dErrors.Wrap(dErrors.CodeInternal, "decode verification document", err)
	}
	return doc, nil
}

// VerificationKey resolves the Ed25519 public key a DID's proofs verify
// against, along with the verification method reference.
func (s *Service) VerificationKey(ctx context.Context, did id.DID) (ed25519.PublicKey, string, error) {
	doc, err := s.Resolve(ctx, did)
	if err != nil {
		return nil, "", err
	}
	for _, vm := range doc.VerificationMethods {
		if vm.Type != VerificationMethodEd25519 {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(vm.PublicKeyBase64)
		if err != nil || len(key) != ed25519.PublicKeySize {
			continue
		}
		return ed25519.PublicKey(key), vm.ID, nil
	}
	return nil, "", dErrors.New(dErrors.CodeNotFound, "no usable verification method")
}

// deriveDID derives a fresh identifier from the user and a freshness value,
// so re-registration after account deletion never reuses an identifier.
func deriveDID(userID id.UserID) id.DID {
	sum := sha256.Sum256([]byte(userID.String() + ":" + uuid.NewString()))
	return id.DID(id.DIDMethodPrefix + hex.EncodeToString(sum[:16]))
}
