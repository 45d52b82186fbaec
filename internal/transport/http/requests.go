package httptransport

import "encoding/json"

type loginRequest struct {
	UserID            string `json:"user_id"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	MPIN              string `json:"mpin,omitempty"`
}

type advanceRequest struct {
	DeviceFingerprint string `json:"device_fingerprint"`
	Step              string `json:"step"`
	Evidence          string `json:"evidence,omitempty"`
}

type captureRequest struct {
	DataType string          `json:"data_type,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type issueGrantRequest struct {
	HolderDID    string   `json:"holder_did"`
	ResourceRefs []string `json:"resource_refs"`
	Purpose      string   `json:"purpose"`
	TTLSeconds   int64    `json:"ttl_seconds"`
	MaxUses      int      `json:"max_uses,omitempty"`
}

type runAnalysisRequest struct {
	Grant   json.RawMessage `json:"grant"`
	Purpose string          `json:"purpose"`
}
