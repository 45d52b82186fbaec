// Package store tracks grant use counters. The counter is the only
// cross-request shared mutable state in the subsystem, so every
// implementation must provide increment-with-precondition semantics:
// a grant is never consumed past its use budget, no matter how many
// concurrent runs race on it.
package store

import (
	"context"

	id "canguard/pkg/domain"
)

// UseStore persists (requestID -> usesConsumed, maxUses).
// Implementations return sentinel errors for the factual states:
// ErrNotFound for unknown grants, ErrExhausted when the budget is spent,
// ErrConflict when optimistic retries ran out.
type UseStore interface {
	// Register records a freshly issued grant with a zero use count.
	Register(ctx context.Context, requestID id.RequestID, maxUses int) error

	// Uses returns the current consumed count. Read-only; verification
	// calls this and never mutates.
	Uses(ctx context.Context, requestID id.RequestID) (int, error)

	// ConsumeUse atomically increments the count iff it is below maxUses.
	ConsumeUse(ctx context.Context, requestID id.RequestID) error
}
