package store

import (
	"context"
	"database/sql"
	"fmt"

	"canguard/internal/analysis"
	id "canguard/pkg/domain"
)

// PostgresDecisionStore persists decision history in the analysis_decisions
// table. Inserts only; the schema carries no update path.
type PostgresDecisionStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDecisionStore {
	return &PostgresDecisionStore{db: db}
}

func (s *PostgresDecisionStore) Append(ctx context.Context, d analysis.AnalysisDecision) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_decisions
		   (request_id, user_id, decision, confidence, risk_level, data_points_count, failed_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.RequestID.String(), d.UserID.String(), string(d.Decision), d.Confidence,
		string(d.RiskLevel), d.DataPointsCount, d.FailedCount, d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

func (s *PostgresDecisionStore) ListByUser(ctx context.Context, userID id.UserID) ([]analysis.AnalysisDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, user_id, decision, confidence, risk_level, data_points_count, failed_count, created_at
		 FROM analysis_decisions WHERE user_id = $1 ORDER BY created_at`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []analysis.AnalysisDecision
	for rows.Next() {
		var (
			d                 analysis.AnalysisDecision
			rawRequest, rawUser string
			decision, risk    string
		)
		if err := rows.Scan(&rawRequest, &rawUser, &decision, &d.Confidence, &risk,
			&d.DataPointsCount, &d.FailedCount, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if d.RequestID, err = id.ParseRequestID(rawRequest); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if d.UserID, err = id.ParseUserID(rawUser); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Decision = analysis.Decision(decision)
		d.RiskLevel = analysis.RiskLevel(risk)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return out, nil
}
