// Package store persists analysis decisions. The history is append-only;
// nothing in this package ever mutates or deletes a recorded decision.
package store

import (
	"context"

	"canguard/internal/analysis"
	id "canguard/pkg/domain"
)

// DecisionStore records and lists decisions per user.
type DecisionStore interface {
	Append(ctx context.Context, decision analysis.AnalysisDecision) error
	ListByUser(ctx context.Context, userID id.UserID) ([]analysis.AnalysisDecision, error)
}
