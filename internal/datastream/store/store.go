// Package store persists the per-user data-stream index: the ordered list of
// content identifiers a user's behavioral captures have produced. The index
// is the source of truth for grant scope validation.
package store

import (
	"context"

	id "canguard/pkg/domain"
)

// IndexStore is interface-driven so the in-memory and Redis implementations
// stay swappable without rewiring business code.
type IndexStore interface {
	Append(ctx context.Context, userID id.UserID, cid id.CID) error
	ListByUser(ctx context.Context, userID id.UserID) ([]id.CID, error)
}
