package store

import (
	"context"
	"sync"

	"canguard/internal/session"
	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

// InMemorySessionStore keeps records in process memory. Intended for tests
// and single-instance deployments.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]session.UserSession
	byDevice map[deviceKey]id.SessionID
}

type deviceKey struct {
	userID      id.UserID
	fingerprint string
}

func NewInMemory() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]session.UserSession),
		byDevice: make(map[deviceKey]id.SessionID),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, record session.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := deviceKey{userID: record.UserID, fingerprint: record.DeviceFingerprint}
	if old, ok := s.byDevice[key]; ok {
		delete(s.sessions, old)
	}
	record.Version = 1
	s.sessions[record.SessionID] = record
	s.byDevice[key] = record.SessionID
	return nil
}

func (s *InMemorySessionStore) Update(_ context.Context, record session.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[record.SessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != record.Version {
		return sentinel.ErrConflict
	}
	record.Version++
	s.sessions[record.SessionID] = record
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (session.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.sessions[sessionID]; ok {
		return record, nil
	}
	return session.UserSession{}, sentinel.ErrNotFound
}

func (s *InMemorySessionStore) FindByUserDevice(_ context.Context, userID id.UserID, deviceFingerprint string) (session.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byDevice[deviceKey{userID: userID, fingerprint: deviceFingerprint}]
	if !ok {
		return session.UserSession{}, sentinel.ErrNotFound
	}
	return s.sessions[sessionID], nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.byDevice, deviceKey{userID: record.UserID, fingerprint: record.DeviceFingerprint})
	return nil
}
