package domain

import dErrors "canguard/pkg/domain-errors"

// GrantPurpose identifies why access to behavioral data is requested.
// Invariant: the value must be one of the supported purposes; grants carry
// the purpose inside their signed payload, so the allowlist is closed.
//
// Construct via ParseGrantPurpose at trust boundaries; direct casting
// bypasses validation.
type GrantPurpose string

const (
	GrantPurposeBehavioralAnalysis GrantPurpose = "behavioral-analysis"
	GrantPurposeFraudInvestigation GrantPurpose = "fraud-investigation"
)

// validGrantPurposes is the single source of truth for valid purposes.
var validGrantPurposes = map[GrantPurpose]bool{
	GrantPurposeBehavioralAnalysis: true,
	GrantPurposeFraudInvestigation: true,
}

// ParseGrantPurpose constructs a GrantPurpose from external input.
func ParseGrantPurpose(raw string) (GrantPurpose, error) {
	purpose := GrantPurpose(raw)
	if !validGrantPurposes[purpose] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported grant purpose: "+raw)
	}
	return purpose, nil
}

func (p GrantPurpose) String() string { return string(p) }
