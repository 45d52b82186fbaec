package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"canguard/internal/session/metrics"
	"canguard/internal/session/revocation"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/sentinel"
	"canguard/pkg/requestcontext"
)

// TokenIssuer signs session bearer tokens.
type TokenIssuer interface {
	Generate(userID id.UserID, sessionID id.SessionID, now time.Time, expiresAt time.Time) (string, error)
}

// SessionStore persists one record per (user, device) authentication cycle.
//
// Create replaces any live record for the same (user, device) pair, which is
// how logout-then-relogin supersedes a cycle. Update requires the record's
// Version to match the stored one and bumps it on success; a mismatch
// returns sentinel.ErrConflict and the caller should reload and retry.
// Lookups return sentinel.ErrNotFound for unknown keys.
type SessionStore interface {
	Create(ctx context.Context, s UserSession) error
	Update(ctx context.Context, s UserSession) error
	FindByID(ctx context.Context, sessionID id.SessionID) (UserSession, error)
	FindByUserDevice(ctx context.Context, userID id.UserID, deviceFingerprint string) (UserSession, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// updateRetries bounds optimistic reload-and-retry on version conflicts.
const updateRetries = 3

// Service drives the authentication state machine. Session type is always
// recomputed from the stored flags; nothing here trusts a client-supplied
// classification.
type Service struct {
	sessions    SessionStore
	revocations revocation.List
	mpins       MPINStore
	tokens      TokenIssuer
	metrics     *metrics.Metrics
	sessionTTL  time.Duration
	logger      *slog.Logger
}

func NewService(
	sessions SessionStore,
	revocations revocation.List,
	mpins MPINStore,
	tokens TokenIssuer,
	m *metrics.Metrics,
	sessionTTL time.Duration,
	logger *slog.Logger,
) (*Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation list is required")
	}
	if mpins == nil {
		return nil, fmt.Errorf("mpin store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Service{
		sessions:    sessions,
		revocations: revocations,
		mpins:       mpins,
		tokens:      tokens,
		metrics:     m,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}, nil
}

// Login starts a fresh authentication cycle for the device. Any previous
// record for the same (user, device) pair is superseded, never mutated; the
// old token is revoked for whatever lifetime it had left.
func (s *Service) Login(ctx context.Context, userID id.UserID, deviceFingerprint string) (UserSession, string, error) {
	if deviceFingerprint == "" {
		return UserSession{}, "", dErrors.New(dErrors.CodeInvalidInput, "device fingerprint is required")
	}
	now := requestcontext.Now(ctx)

	if old, err := s.sessions.FindByUserDevice(ctx, userID, deviceFingerprint); err == nil {
		if remaining := old.ExpiresAt.Sub(now); remaining > 0 {
			if err := s.revocations.Revoke(ctx, old.SessionID, remaining); err != nil {
				return UserSession{}, "", dErrors.Wrap(dErrors.CodeStoreUnavailable, "revoke superseded session", err)
			}
		}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return UserSession{}, "", dErrors.Wrap(dErrors.CodeStoreUnavailable, "look up device session", err)
	}

	record := UserSession{
		SessionID:         id.SessionID(uuid.New()),
		UserID:            userID,
		DeviceFingerprint: deviceFingerprint,
		Steps:             AuthSteps{LoginCompleted: true},
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		s.metrics.IncrementLogin("error")
		return UserSession{}, "", dErrors.Wrap(dErrors.CodeStoreUnavailable, "create session", err)
	}
	record.Version = 1

	tokenString, err := s.tokens.Generate(userID, record.SessionID, now, record.ExpiresAt)
	if err != nil {
		s.metrics.IncrementLogin("error")
		return UserSession{}, "", dErrors.Wrap(dErrors.CodeInternal, "sign session token", err)
	}

	s.metrics.IncrementLogin("success")
	s.logger.InfoContext(ctx, "session started",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"session_id", record.SessionID,
		"expires_at", record.ExpiresAt,
	)
	return record, tokenString, nil
}

// Status returns the derived state for the authenticated session. It never
// mutates the record; a past-deadline record reads as expired even if no
// sweep has touched it.
func (s *Service) Status(ctx context.Context) (View, error) {
	record, err := s.authenticatedSession(ctx)
	if err != nil {
		return View{}, err
	}
	return record.View(requestcontext.Now(ctx)), nil
}

// Advance marks one step of the chain complete and returns the recomputed
// state. Steps advance strictly in chain order; re-advancing a completed
// step is an idempotent no-op.
func (s *Service) Advance(ctx context.Context, userID id.UserID, deviceFingerprint string, step Step, evidence string) (View, error) {
	if deviceFingerprint == "" {
		return View{}, dErrors.New(dErrors.CodeInvalidInput, "device fingerprint is required")
	}

	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		record, err := s.sessions.FindByUserDevice(ctx, userID, deviceFingerprint)
		if errors.Is(err, sentinel.ErrNotFound) {
			return View{}, dErrors.New(dErrors.CodeUnauthenticated, "no active session for this device")
		}
		if err != nil {
			return View{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "look up device session", err)
		}

		now := requestcontext.Now(ctx)
		if record.Revoked || !now.Before(record.ExpiresAt) {
			return View{}, dErrors.New(dErrors.CodeUnauthenticated, "session has expired, restart from login")
		}

		view, changed, err := s.applyStep(ctx, &record, step, evidence, now)
		if err != nil {
			s.metrics.IncrementStepAdvance(step.String(), "rejected")
			return View{}, err
		}
		if !changed {
			return view, nil
		}

		err = s.sessions.Update(ctx, record)
		if err == nil {
			s.metrics.IncrementStepAdvance(step.String(), "success")
			s.logger.InfoContext(ctx, "session step advanced",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID,
				"session_id", record.SessionID,
				"step", step,
				"session_type", view.SessionType,
			)
			return view, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return View{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "update session", err)
		}
		lastErr = err
	}
	return View{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "update session after retries", lastErr)
}

// applyStep mutates the record in place and reports whether a write is
// needed. MPIN verification failures count against the retry budget and the
// third failure revokes the session outright.
func (s *Service) applyStep(ctx context.Context, record *UserSession, step Step, evidence string, now time.Time) (View, bool, error) {
	switch step {
	case StepLogin:
		// Login is completed by the login operation itself.
		return record.View(now), false, nil

	case StepTypingGame:
		if record.Steps.TypingGameCompleted {
			return record.View(now), false, nil
		}
		record.Steps.TypingGameCompleted = true
		record.LastBehavioralUpdate = now
		return record.View(now), true, nil

	case StepMPIN:
		if !record.Steps.TypingGameCompleted {
			return View{}, false, dErrors.New(dErrors.CodeInvalidStep, "typing verification must complete before mpin")
		}
		if record.Steps.MPINVerified {
			return record.View(now), false, nil
		}
		return s.verifyMPIN(ctx, record, evidence, now)

	default:
		return View{}, false, dErrors.New(dErrors.CodeInvalidStep, "unknown authentication step: "+step.String())
	}
}

func (s *Service) verifyMPIN(ctx context.Context, record *UserSession, evidence string, now time.Time) (View, bool, error) {
	hash, err := s.mpins.HashFor(ctx, record.UserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return View{}, false, dErrors.New(dErrors.CodeBadRequest, "no mpin enrolled for this account")
	}
	if err != nil {
		return View{}, false, dErrors.Wrap(dErrors.CodeStoreUnavailable, "load mpin credential", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(evidence)) == nil {
		record.Steps.MPINVerified = true
		record.MPINAttempts = 0
		record.LastFullAuthentication = now
		return record.View(now), true, nil
	}

	record.MPINAttempts++
	if record.MPINAttempts >= maxMPINAttempts {
		record.Revoked = true
		if err := s.sessions.Update(ctx, *record); err != nil {
			return View{}, false, dErrors.Wrap(dErrors.CodeStoreUnavailable, "revoke session", err)
		}
		if remaining := record.ExpiresAt.Sub(now); remaining > 0 {
			if err := s.revocations.Revoke(ctx, record.SessionID, remaining); err != nil {
				return View{}, false, dErrors.Wrap(dErrors.CodeStoreUnavailable, "revoke session token", err)
			}
		}
		s.metrics.IncrementMPINLockout()
		s.logger.WarnContext(ctx, "session revoked after mpin exhaustion",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", record.UserID,
			"session_id", record.SessionID,
		)
		return View{}, false, dErrors.New(dErrors.CodeTooManyAttempts, "mpin retry budget exhausted, restart from login")
	}

	if err := s.sessions.Update(ctx, *record); err != nil {
		return View{}, false, dErrors.Wrap(dErrors.CodeStoreUnavailable, "record mpin attempt", err)
	}
	return View{}, false, dErrors.New(dErrors.CodeUnauthenticated, "mpin verification failed")
}

// Logout deletes the record and revokes its token. Re-login issues a fresh
// record with a fresh token.
func (s *Service) Logout(ctx context.Context) error {
	record, err := s.authenticatedSession(ctx)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, record.SessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(dErrors.CodeStoreUnavailable, "delete session", err)
	}
	now := requestcontext.Now(ctx)
	if remaining := record.ExpiresAt.Sub(now); remaining > 0 {
		if err := s.revocations.Revoke(ctx, record.SessionID, remaining); err != nil {
			return dErrors.Wrap(dErrors.CodeStoreUnavailable, "revoke session token", err)
		}
	}
	s.logger.InfoContext(ctx, "session ended",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", record.UserID,
		"session_id", record.SessionID,
	)
	return nil
}

// authenticatedSession resolves the caller's record from the bearer token
// identities and enforces revocation.
func (s *Service) authenticatedSession(ctx context.Context) (UserSession, error) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsZero() {
		return UserSession{}, dErrors.New(dErrors.CodeUnauthenticated, "no session credential presented")
	}

	revoked, err := s.revocations.IsRevoked(ctx, sessionID)
	if err != nil {
		return UserSession{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "check session revocation", err)
	}
	if revoked {
		return UserSession{}, dErrors.New(dErrors.CodeUnauthenticated, "session has been revoked")
	}

	record, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return UserSession{}, dErrors.New(dErrors.CodeUnauthenticated, "unknown session")
	}
	if err != nil {
		return UserSession{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "look up session", err)
	}
	if record.Revoked {
		return UserSession{}, dErrors.New(dErrors.CodeUnauthenticated, "session has been revoked")
	}
	return record, nil
}
