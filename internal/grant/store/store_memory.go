package store

import (
	"context"
	"sync"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

// InMemoryUseStore tracks use counters in process memory. The mutex gives
// the same increment-with-precondition guarantee the distributed stores
// provide via CAS.
type InMemoryUseStore struct {
	mu     sync.Mutex
	grants map[id.RequestID]*useRecord
}

type useRecord struct {
	uses    int
	maxUses int
}

func NewInMemory() *InMemoryUseStore {
	return &InMemoryUseStore{grants: make(map[id.RequestID]*useRecord)}
}

func (s *InMemoryUseStore) Register(_ context.Context, requestID id.RequestID, maxUses int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.grants[requestID]; exists {
		return sentinel.ErrConflict
	}
	s.grants[requestID] = &useRecord{maxUses: maxUses}
	return nil
}

func (s *InMemoryUseStore) Uses(_ context.Context, requestID id.RequestID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.grants[requestID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return record.uses, nil
}

func (s *InMemoryUseStore) ConsumeUse(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.grants[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.uses >= record.maxUses {
		return sentinel.ErrExhausted
	}
	record.uses++
	return nil
}
