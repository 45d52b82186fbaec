package store

import (
	"context"
	"sync"

	"canguard/internal/analysis"
	id "canguard/pkg/domain"
)

// InMemoryDecisionStore keeps decision history in process memory.
type InMemoryDecisionStore struct {
	mu        sync.RWMutex
	decisions map[id.UserID][]analysis.AnalysisDecision
}

func NewInMemory() *InMemoryDecisionStore {
	return &InMemoryDecisionStore{decisions: make(map[id.UserID][]analysis.AnalysisDecision)}
}

func (s *InMemoryDecisionStore) Append(_ context.Context, decision analysis.AnalysisDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decision.UserID] = append(s.decisions[decision.UserID], decision)
	return nil
}

func (s *InMemoryDecisionStore) ListByUser(_ context.Context, userID id.UserID) ([]analysis.AnalysisDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analysis.AnalysisDecision, len(s.decisions[userID]))
	copy(out, s.decisions[userID])
	return out, nil
}
