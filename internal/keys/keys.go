// Package keys manages per-user key material. The subsystem never persists
// plaintext behavioral data, so the long-lived secrets per user are the
// symmetric data key and the Ed25519 signing key; production deployments
// should back the store with an HSM or KMS, which slots in behind the same
// interface.
package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"canguard/internal/cryptobox"
	id "canguard/pkg/domain"
)

// Store hands out a user's key material, creating it on first use.
type Store interface {
	// KeyFor returns the user's symmetric data key.
	KeyFor(ctx context.Context, userID id.UserID) ([]byte, error)
	// SigningKeyFor returns the user's Ed25519 signing key.
	SigningKeyFor(ctx context.Context, userID id.UserID) (ed25519.PrivateKey, error)
}

// InMemoryStore generates and caches keys in process memory.
type InMemoryStore struct {
	mu      sync.Mutex
	keys    map[id.UserID][]byte
	signing map[id.UserID]ed25519.PrivateKey
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		keys:    make(map[id.UserID][]byte),
		signing: make(map[id.UserID]ed25519.PrivateKey),
	}
}

func (s *InMemoryStore) KeyFor(_ context.Context, userID id.UserID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[userID]; ok {
		return key, nil
	}
	key, err := cryptobox.NewKey()
	if err != nil {
		return nil, err
	}
	s.keys[userID] = key
	return key, nil
}

func (s *InMemoryStore) SigningKeyFor(_ context.Context, userID id.UserID) (ed25519.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.signing[userID]; ok {
		return key, nil
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	s.signing[userID] = priv
	return priv, nil
}
