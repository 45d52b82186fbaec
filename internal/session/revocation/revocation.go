// Package revocation maintains the session revocation list. A revoked
// session's token must be rejected even while the token itself is still
// within its signed lifetime.
package revocation

import (
	"context"
	"sync"
	"time"

	id "canguard/pkg/domain"
)

// List records revoked sessions until their tokens would have expired
// anyway, after which entries may be dropped.
type List interface {
	Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// InMemoryList is for tests and single-instance deployments.
type InMemoryList struct {
	mu      sync.RWMutex
	revoked map[id.SessionID]time.Time
}

func NewInMemory() *InMemoryList {
	return &InMemoryList{revoked: make(map[id.SessionID]time.Time)}
}

func (l *InMemoryList) Revoke(_ context.Context, sessionID id.SessionID, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[sessionID] = time.Now().Add(ttl)
	return nil
}

func (l *InMemoryList) IsRevoked(_ context.Context, sessionID id.SessionID) (bool, error) {
	l.mu.RLock()
	deadline, ok := l.revoked[sessionID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		l.mu.Lock()
		delete(l.revoked, sessionID)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
