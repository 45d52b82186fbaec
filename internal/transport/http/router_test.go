package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"canguard/internal/audit"
	"canguard/internal/auth/device"
	"canguard/internal/session"
	"canguard/internal/session/revocation"
	sessionstore "canguard/internal/session/store"
	"canguard/internal/token"
	id "canguard/pkg/domain"
)

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	userID id.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.userID = id.UserID(uuid.New())

	tokenService := token.NewService("router-test-key", "canguard")
	mpins := session.NewInMemoryMPINStore()
	sessions, err := session.NewService(
		sessionstore.NewInMemory(),
		revocation.NewInMemory(),
		mpins,
		tokenService,
		nil,
		30*time.Minute,
		logger,
	)
	s.Require().NoError(err)

	handler := NewSessionHandler(sessions, device.NewService(true), mpins, audit.NewPublisher(16), logger)
	router := NewRouter(RouterDeps{
		Logger:    logger,
		Validator: token.NewMiddlewareAdapter(tokenService),
		Public:    []PublicRegistrar{handler},
		Protected: []Registrar{handler},
	})

	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) do(method, path, bearer string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *RouterSuite) login() string {
	resp, body := s.do(http.MethodPost, "/session/login", "", loginRequest{
		UserID:            s.userID.String(),
		DeviceFingerprint: "fp-test-device",
		MPIN:              "4821",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	tokenString, _ := body["token"].(string)
	s.Require().NotEmpty(tokenString)
	return tokenString
}

func (s *RouterSuite) TestAuthenticationChain() {
	bearer := s.login()

	resp, body := s.do(http.MethodGet, "/session/status", bearer, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(string(session.StepTypingGame), body["next_required_step"])

	resp, body = s.do(http.MethodPost, "/session/advance", bearer, advanceRequest{
		DeviceFingerprint: "fp-test-device",
		Step:              "typing_game",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(string(session.TypeMPINOnly), body["session_type"])

	resp, body = s.do(http.MethodPost, "/session/advance", bearer, advanceRequest{
		DeviceFingerprint: "fp-test-device",
		Step:              "mpin",
		Evidence:          "4821",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(string(session.TypeFullAuth), body["session_type"])
}

func (s *RouterSuite) TestAuthMiddleware() {
	s.Run("missing token", func() {
		resp, body := s.do(http.MethodGet, "/session/status", "", nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		s.Equal("unauthenticated", body["error"])
	})

	s.Run("garbage token", func() {
		resp, _ := s.do(http.MethodGet, "/session/status", "not-a-token", nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *RouterSuite) TestRejectedAdvance() {
	bearer := s.login()

	resp, body := s.do(http.MethodPost, "/session/advance", bearer, advanceRequest{
		DeviceFingerprint: "fp-test-device",
		Step:              "mpin",
		Evidence:          "4821",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid_step", body["error"])

	resp, _ = s.do(http.MethodPost, "/session/advance", bearer, advanceRequest{
		DeviceFingerprint: "fp-test-device",
		Step:              "retina_scan",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) TestLogout() {
	bearer := s.login()

	resp, _ := s.do(http.MethodPost, "/session/logout", bearer, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/session/status", bearer, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestHealthz() {
	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
}
