package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

// PostgresUseStore persists grant use counters in the grant_uses table.
// The increment is a conditional UPDATE so concurrent consumers of the
// same grant race on the row, not on application state.
type PostgresUseStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUseStore {
	return &PostgresUseStore{db: db}
}

func (s *PostgresUseStore) Register(ctx context.Context, requestID id.RequestID, maxUses int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grant_uses (request_id, uses, max_uses) VALUES ($1, 0, $2)`,
		requestID.String(), maxUses,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("register grant: %w", err)
	}
	return nil
}

func (s *PostgresUseStore) Uses(ctx context.Context, requestID id.RequestID) (int, error) {
	var uses int
	err := s.db.QueryRowContext(ctx,
		`SELECT uses FROM grant_uses WHERE request_id = $1`,
		requestID.String(),
	).Scan(&uses)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read grant uses: %w", err)
	}
	return uses, nil
}

func (s *PostgresUseStore) ConsumeUse(ctx context.Context, requestID id.RequestID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grant_uses SET uses = uses + 1 WHERE request_id = $1 AND uses < max_uses`,
		requestID.String(),
	)
	if err != nil {
		return fmt.Errorf("consume grant use: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume grant use: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish an exhausted grant from an unknown one.
	if _, err := s.Uses(ctx, requestID); err != nil {
		return err
	}
	return sentinel.ErrExhausted
}
