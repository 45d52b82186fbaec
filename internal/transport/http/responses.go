package httptransport

import (
	"time"

	"canguard/internal/analysis"
	"canguard/internal/identity"
	"canguard/internal/session"
)

type loginResponse struct {
	SessionID        string       `json:"session_id"`
	Token            string       `json:"token"`
	NextRequiredStep session.Step `json:"next_required_step"`
	DeviceName       string       `json:"device_name,omitempty"`
	ExpiresAt        time.Time    `json:"expires_at"`
}

type captureResponse struct {
	CID string `json:"cid"`
}

type identityResponse struct {
	DID         string    `json:"did"`
	DocumentCID string    `json:"document_cid"`
	CreatedAt   time.Time `json:"created_at"`
}

type decisionResponse struct {
	RequestID       string    `json:"request_id"`
	Decision        string    `json:"decision"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       string    `json:"risk_level"`
	DataPointsCount int       `json:"data_points_count"`
	FailedCount     int       `json:"failed_count"`
	Timestamp       time.Time `json:"timestamp"`
}

func fromDecision(d analysis.AnalysisDecision) decisionResponse {
	return decisionResponse{
		RequestID:       d.RequestID.String(),
		Decision:        string(d.Decision),
		Confidence:      d.Confidence,
		RiskLevel:       string(d.RiskLevel),
		DataPointsCount: d.DataPointsCount,
		FailedCount:     d.FailedCount,
		Timestamp:       d.Timestamp,
	}
}

func fromIdentityRecord(r identity.Record) identityResponse {
	return identityResponse{
		DID:         r.DID.String(),
		DocumentCID: r.DocumentCID.String(),
		CreatedAt:   r.CreatedAt,
	}
}
