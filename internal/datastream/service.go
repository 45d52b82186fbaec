// Package datastream ingests behavioral captures: each sample is sealed with
// the owner's key, written to the content store, and its identifier appended
// to the owner's data-stream index.
package datastream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"canguard/internal/cryptobox"
	"canguard/internal/datastream/store"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/requestcontext"
)

// BlobPutter is the slice of the content store client the service needs.
type BlobPutter interface {
	Put(ctx context.Context, data []byte) (id.CID, error)
}

// KeySource resolves a user's symmetric key material.
type KeySource interface {
	KeyFor(ctx context.Context, userID id.UserID) ([]byte, error)
}

// Service orchestrates seal -> put -> index append for one capture.
type Service struct {
	index  store.IndexStore
	blobs  BlobPutter
	keys   KeySource
	logger *slog.Logger
}

func NewService(index store.IndexStore, blobs BlobPutter, keys KeySource, logger *slog.Logger) (*Service, error) {
	if index == nil {
		return nil, fmt.Errorf("index store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob putter is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key source is required")
	}
	return &Service{index: index, blobs: blobs, keys: keys, logger: logger}, nil
}

// Capture encrypts one behavioral sample and records it under the owner.
// The plaintext payload never leaves this function unencrypted.
func (s *Service) Capture(ctx context.Context, userID id.UserID, ownerDID id.DID, dataType string, payload []byte) (id.CID, error) {
	if len(payload) == 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "capture payload must not be empty")
	}

	key, err := s.keys.KeyFor(ctx, userID)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "resolve user key", err)
	}

	ciphertext, nonce, err := cryptobox.Seal(payload, key)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "seal capture payload", err)
	}

	blob := EncryptedBlob{
		SchemaVersion: BlobSchemaVersion,
		EncryptedData: ciphertext,
		Nonce:         nonce,
		Metadata: BlobMetadata{
			DataType:  dataType,
			Timestamp: requestcontext.Now(ctx),
			OwnerDID:  ownerDID,
		},
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "encode blob", err)
	}

	cid, err := s.blobs.Put(ctx, raw)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeStoreUnavailable, "store capture blob", err)
	}

	if err := s.index.Append(ctx, userID, cid); err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "append data stream index", err)
	}

	s.logger.InfoContext(ctx, "behavioral capture stored",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"cid", cid,
		"data_type", dataType,
	)
	return cid, nil
}

// Missing returns the subset of resources absent from the user's index.
// An empty result means every requested resource belongs to the user.
func (s *Service) Missing(ctx context.Context, userID id.UserID, resources []id.CID) ([]id.CID, error) {
	owned, err := s.index.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "read data stream index", err)
	}
	ownedSet := make(map[id.CID]bool, len(owned))
	for _, cid := range owned {
		ownedSet[cid] = true
	}
	var missing []id.CID
	for _, cid := range resources {
		if !ownedSet[cid] {
			missing = append(missing, cid)
		}
	}
	return missing, nil
}
