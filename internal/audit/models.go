// Package audit captures the security-relevant actions of the subsystem as
// append-only events. Events carry identifiers and outcomes only, never
// behavioral content or key material.
package audit

import "time"

// Event is emitted from the transport layer to record key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
}

// Recorded actions.
const (
	ActionLogin            = "session.login"
	ActionLogout           = "session.logout"
	ActionStepAdvance      = "session.step_advance"
	ActionCapture          = "datastream.capture"
	ActionIdentityCreated  = "identity.created"
	ActionGrantIssued      = "grant.issued"
	ActionAnalysisDecision = "analysis.decision"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
