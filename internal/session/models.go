// Package session tracks per-device authentication progress through the
// multi-factor chain. The session type is never stored: it is derived on
// every read from the step flags and the expiry deadline, so a stale record
// can never masquerade as an authenticated one.
package session

import (
	"time"

	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
)

// Step is one stage of the authentication chain.
type Step string

const (
	StepLogin      Step = "login"
	StepTypingGame Step = "typing_game"
	StepMPIN       Step = "mpin"
)

var validSteps = map[Step]bool{
	StepLogin:      true,
	StepTypingGame: true,
	StepMPIN:       true,
}

// ParseStep constructs a Step from external input.
func ParseStep(raw string) (Step, error) {
	step := Step(raw)
	if !validSteps[step] {
		return "", dErrors.New(dErrors.CodeInvalidStep, "unknown authentication step: "+raw)
	}
	return step, nil
}

func (s Step) String() string { return string(s) }

// Type classifies how far a device has progressed through the chain.
type Type string

const (
	TypeFullAuth Type = "full_auth"
	TypeMPINOnly Type = "mpin_only"
	TypeExpired  Type = "expired"
)

func (t Type) String() string { return string(t) }

// AuthSteps is the per-cycle step-flag vector. Flags only ever move from
// false to true within a cycle; a new cycle starts from a fresh record.
type AuthSteps struct {
	LoginCompleted      bool `json:"login_completed"`
	TypingGameCompleted bool `json:"typing_game_completed"`
	MPINVerified        bool `json:"mpin_verified"`
}

// maxMPINAttempts is the retry budget before a session is forcibly revoked.
const maxMPINAttempts = 3

// UserSession is one authentication cycle on one device. Unique per
// (UserID, DeviceFingerprint); logout or MPIN exhaustion supersedes the
// record rather than resetting it.
type UserSession struct {
	SessionID         id.SessionID `json:"session_id"`
	UserID            id.UserID    `json:"user_id"`
	DeviceFingerprint string       `json:"device_fingerprint"`

	Steps        AuthSteps `json:"steps"`
	MPINAttempts int       `json:"mpin_attempts"`
	Revoked      bool      `json:"revoked"`

	CreatedAt              time.Time `json:"created_at"`
	ExpiresAt              time.Time `json:"expires_at"`
	LastFullAuthentication time.Time `json:"last_full_authentication,omitzero"`
	LastBehavioralUpdate   time.Time `json:"last_behavioral_update,omitzero"`

	// Version guards optimistic updates; stores reject writes whose
	// version does not match the stored record.
	Version int `json:"version"`
}

// Type derives the session classification. Expiry at exactly ExpiresAt
// counts as expired, matching grant semantics.
func (s UserSession) Type(now time.Time) Type {
	if s.Revoked || !now.Before(s.ExpiresAt) {
		return TypeExpired
	}
	switch {
	case s.Steps.LoginCompleted && s.Steps.TypingGameCompleted && s.Steps.MPINVerified:
		return TypeFullAuth
	case s.Steps.LoginCompleted && s.Steps.TypingGameCompleted:
		return TypeMPINOnly
	default:
		return TypeExpired
	}
}

// NextRequiredStep returns the step the device must complete next, or ""
// when the chain is finished.
func (s UserSession) NextRequiredStep() Step {
	switch {
	case !s.Steps.LoginCompleted:
		return StepLogin
	case !s.Steps.TypingGameCompleted:
		return StepTypingGame
	case !s.Steps.MPINVerified:
		return StepMPIN
	default:
		return ""
	}
}

// View is the client-visible projection of a session.
type View struct {
	SessionType      Type `json:"session_type"`
	NextRequiredStep Step `json:"next_required_step,omitempty"`
}

func (s UserSession) View(now time.Time) View {
	return View{
		SessionType:      s.Type(now),
		NextRequiredStep: s.NextRequiredStep(),
	}
}
