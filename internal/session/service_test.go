package session_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"canguard/internal/session"
	"canguard/internal/session/revocation"
	"canguard/internal/session/store"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/requestcontext"
)

type stubTokenIssuer struct{}

func (stubTokenIssuer) Generate(_ id.UserID, sessionID id.SessionID, _ time.Time, _ time.Time) (string, error) {
	return "token-" + sessionID.String(), nil
}

type SessionServiceSuite struct {
	suite.Suite
	service *session.Service
	mpins   *session.InMemoryMPINStore

	userID      id.UserID
	fingerprint string
	now         time.Time
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

func (s *SessionServiceSuite) SetupTest() {
	s.userID = id.UserID(uuid.New())
	s.fingerprint = "fp-primary-device"
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s.mpins = session.NewInMemoryMPINStore()

	var err error
	s.service, err = session.NewService(
		store.NewInMemory(),
		revocation.NewInMemory(),
		s.mpins,
		stubTokenIssuer{},
		nil,
		30*time.Minute,
		slog.New(slog.DiscardHandler),
	)
	s.Require().NoError(err)

	s.Require().NoError(s.mpins.Set(context.Background(), s.userID, "4821"))
}

func (s *SessionServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *SessionServiceSuite) authedCtx(record session.UserSession) context.Context {
	ctx := requestcontext.WithUserID(s.ctx(), record.UserID)
	return requestcontext.WithSessionID(ctx, record.SessionID)
}

// completeChain walks a fresh session through typing and mpin.
func (s *SessionServiceSuite) completeChain() session.UserSession {
	record, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
	s.Require().NoError(err)

	_, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepTypingGame, "")
	s.Require().NoError(err)
	view, err := s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "4821")
	s.Require().NoError(err)
	s.Require().Equal(session.TypeFullAuth, view.SessionType)
	return record
}

func (s *SessionServiceSuite) TestLogin() {
	s.Run("issues a token and starts the chain", func() {
		record, tokenString, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)
		s.NotEmpty(tokenString)
		s.True(record.Steps.LoginCompleted)
		s.Equal(session.StepTypingGame, record.NextRequiredStep())
		s.Equal(s.now.Add(30*time.Minute), record.ExpiresAt)
	})

	s.Run("requires a device fingerprint", func() {
		_, _, err := s.service.Login(s.ctx(), s.userID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("relogin supersedes the previous cycle", func() {
		first, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)
		second, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)
		s.NotEqual(first.SessionID, second.SessionID)

		_, err = s.service.Status(s.authedCtx(first))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

		view, err := s.service.Status(s.authedCtx(second))
		s.Require().NoError(err)
		s.Equal(session.StepTypingGame, view.NextRequiredStep)
	})
}

func (s *SessionServiceSuite) TestAdvance() {
	s.Run("typing then mpin reaches full auth", func() {
		_, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)

		view, err := s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepTypingGame, "")
		s.Require().NoError(err)
		s.Equal(session.TypeMPINOnly, view.SessionType)
		s.Equal(session.StepMPIN, view.NextRequiredStep)

		view, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "4821")
		s.Require().NoError(err)
		s.Equal(session.TypeFullAuth, view.SessionType)
		s.Empty(view.NextRequiredStep)
	})

	s.Run("mpin before typing is rejected", func() {
		_, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)

		_, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "4821")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStep))
	})

	s.Run("re-advancing a completed step is idempotent", func() {
		s.completeChain()

		view, err := s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepTypingGame, "")
		s.Require().NoError(err)
		s.Equal(session.TypeFullAuth, view.SessionType)
	})

	s.Run("unknown device has no session", func() {
		_, err := s.service.Advance(s.ctx(), s.userID, "fp-stolen-device", session.StepTypingGame, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	s.Run("expired record rejects advancement", func() {
		record, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)

		late := requestcontext.WithTime(context.Background(), record.ExpiresAt)
		_, err = s.service.Advance(late, s.userID, s.fingerprint, session.StepTypingGame, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func (s *SessionServiceSuite) TestMPINRetryBudget() {
	record, _, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
	s.Require().NoError(err)
	_, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepTypingGame, "")
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "0000")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	}

	_, err = s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "0000")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyAttempts))

	s.Run("revoked session rejects the token on status", func() {
		_, err := s.service.Status(s.authedCtx(record))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	s.Run("correct mpin no longer helps", func() {
		_, err := s.service.Advance(s.ctx(), s.userID, s.fingerprint, session.StepMPIN, "4821")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func (s *SessionServiceSuite) TestStatus() {
	s.Run("reports derived state without mutation", func() {
		record := s.completeChain()

		view, err := s.service.Status(s.authedCtx(record))
		s.Require().NoError(err)
		s.Equal(session.TypeFullAuth, view.SessionType)

		again, err := s.service.Status(s.authedCtx(record))
		s.Require().NoError(err)
		s.Equal(view, again)
	})

	s.Run("past-deadline record reads as expired", func() {
		record := s.completeChain()

		late := requestcontext.WithSessionID(
			requestcontext.WithTime(context.Background(), record.ExpiresAt.Add(time.Minute)),
			record.SessionID,
		)
		view, err := s.service.Status(late)
		s.Require().NoError(err)
		s.Equal(session.TypeExpired, view.SessionType)
	})

	s.Run("missing credential", func() {
		_, err := s.service.Status(s.ctx())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func (s *SessionServiceSuite) TestLogout() {
	record := s.completeChain()

	s.Require().NoError(s.service.Logout(s.authedCtx(record)))

	_, err := s.service.Status(s.authedCtx(record))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	s.Run("relogin issues a fresh cycle", func() {
		fresh, tokenString, err := s.service.Login(s.ctx(), s.userID, s.fingerprint)
		s.Require().NoError(err)
		s.NotEqual(record.SessionID, fresh.SessionID)
		s.NotEmpty(tokenString)
		s.False(fresh.Steps.TypingGameCompleted)
	})
}
