package store

import (
	"context"
	"sync"

	id "canguard/pkg/domain"
)

// InMemoryIndexStore keeps the index in process memory. Single-instance
// deployments and tests; production uses the Redis store.
type InMemoryIndexStore struct {
	mu      sync.RWMutex
	streams map[id.UserID][]id.CID
}

func NewInMemory() *InMemoryIndexStore {
	return &InMemoryIndexStore{streams: make(map[id.UserID][]id.CID)}
}

func (s *InMemoryIndexStore) Append(_ context.Context, userID id.UserID, cid id.CID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[userID] = append(s.streams[userID], cid)
	return nil
}

func (s *InMemoryIndexStore) ListByUser(_ context.Context, userID id.UserID) ([]id.CID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.CID{}, s.streams[userID]...), nil
}
