package session

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

// MPINStore holds the per-user MPIN credential hash. Only the bcrypt hash
// is ever stored; the plaintext PIN exists only inside a verification call.
type MPINStore interface {
	Set(ctx context.Context, userID id.UserID, pin string) error
	HashFor(ctx context.Context, userID id.UserID) ([]byte, error)
}

// InMemoryMPINStore is for tests and single-instance deployments.
type InMemoryMPINStore struct {
	mu     sync.RWMutex
	hashes map[id.UserID][]byte
}

func NewInMemoryMPINStore() *InMemoryMPINStore {
	return &InMemoryMPINStore{hashes: make(map[id.UserID][]byte)}
}

func (s *InMemoryMPINStore) Set(_ context.Context, userID id.UserID, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[userID] = hash
	return nil
}

func (s *InMemoryMPINStore) HashFor(_ context.Context, userID id.UserID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if hash, ok := s.hashes[userID]; ok {
		return hash, nil
	}
	return nil, sentinel.ErrNotFound
}
