package store

import (
	"context"
	"sync"

	"canguard/internal/identity"
	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps identity records in process memory.
type InMemoryRecordStore struct {
	mu     sync.RWMutex
	byUser map[id.UserID]identity.Record
	byDID  map[id.DID]identity.Record
}

func NewInMemory() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		byUser: make(map[id.UserID]identity.Record),
		byDID:  make(map[id.DID]identity.Record),
	}
}

func (s *InMemoryRecordStore) Save(_ context.Context, record identity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUser[record.UserID]; exists {
		return sentinel.ErrConflict
	}
	s.byUser[record.UserID] = record
	s.byDID[record.DID] = record
	return nil
}

func (s *InMemoryRecordStore) FindByUser(_ context.Context, userID id.UserID) (identity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.byUser[userID]; ok {
		return record, nil
	}
	return identity.Record{}, sentinel.ErrNotFound
}

func (s *InMemoryRecordStore) FindByDID(_ context.Context, did id.DID) (identity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.byDID[did]; ok {
		return record, nil
	}
	return identity.Record{}, sentinel.ErrNotFound
}
