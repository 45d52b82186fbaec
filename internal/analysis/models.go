// Package analysis runs the fetch-decrypt-score-purge pipeline over a
// permission grant. Decrypted behavioral data lives only inside one Run
// call; the aggregated decision is the only durable output.
package analysis

import (
	"time"

	id "canguard/pkg/domain"
)

// Decision is the three-tier risk verdict, ordered PASS < FLAG < ESCALATE.
type Decision string

const (
	DecisionPass     Decision = "PASS"
	DecisionFlag     Decision = "FLAG"
	DecisionEscalate Decision = "ESCALATE"
)

// RiskLevel accompanies the decision, ordered LOW < MEDIUM < HIGH.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// BehavioralPoint is one decrypted typing sample. Instances must never
// outlive the pipeline run that decoded them.
type BehavioralPoint struct {
	Accuracy  float64   `json:"accuracy"`
	SpeedWPM  float64   `json:"speed_wpm"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// AnalysisDecision is the persisted outcome of a run, keyed by the grant's
// request identifier. Append-only per user; never contains raw behavioral
// values.
type AnalysisDecision struct {
	RequestID       id.RequestID `json:"request_id"`
	UserID          id.UserID    `json:"user_id"`
	Decision        Decision     `json:"decision"`
	Confidence      float64      `json:"confidence"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	DataPointsCount int          `json:"data_points_count"`
	FailedCount     int          `json:"failed_count"`
	Timestamp       time.Time    `json:"timestamp"`
}

// resourceResult is the per-item outcome of the parallel fetch+decrypt
// stage. Failures carry a reason and never abort the batch.
type resourceResult struct {
	cid   id.CID
	point BehavioralPoint
	raw   []byte
	err   error
}
