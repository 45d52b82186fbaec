package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canguard/internal/audit"
	"canguard/internal/auth/device"
	"canguard/internal/session"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/httputil"
	"canguard/pkg/requestcontext"
)

// SessionHandler wires the authentication chain endpoints to the session
// service.
type SessionHandler struct {
	sessions *session.Service
	devices  *device.Service
	mpins    session.MPINStore
	audit    *audit.Publisher
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Service, devices *device.Service, mpins session.MPINStore, publisher *audit.Publisher, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, devices: devices, mpins: mpins, audit: publisher, logger: logger}
}

// RegisterPublic mounts the endpoints reachable without a session token.
func (h *SessionHandler) RegisterPublic(r chi.Router) {
	r.Post("/session/login", h.HandleLogin)
}

// Register mounts the endpoints behind the auth middleware.
func (h *SessionHandler) Register(r chi.Router) {
	r.Get("/session/status", h.HandleStatus)
	r.Post("/session/advance", h.HandleAdvance)
	r.Post("/session/logout", h.HandleLogout)
}

func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[loginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fingerprint := req.DeviceFingerprint
	if fingerprint == "" {
		fingerprint = h.devices.ComputeFingerprint(r.UserAgent())
	}

	if req.MPIN != "" {
		if err := h.mpins.Set(ctx, userID, req.MPIN); err != nil {
			httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "enroll mpin", err))
			return
		}
	}

	record, tokenString, err := h.sessions.Login(ctx, userID, fingerprint)
	if err != nil {
		h.audit.Emit(ctx, audit.Event{
			UserID:  userID.String(),
			Action:  audit.ActionLogin,
			Outcome: audit.OutcomeFailure,
			Reason:  string(dErrors.CodeOf(err)),
		})
		httputil.WriteError(w, err)
		return
	}

	deviceName := device.ParseUserAgent(r.UserAgent())
	h.audit.Emit(ctx, audit.Event{
		UserID:    userID.String(),
		SessionID: record.SessionID.String(),
		Action:    audit.ActionLogin,
		Subject:   deviceName,
		Outcome:   audit.OutcomeSuccess,
	})
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		SessionID:        record.SessionID.String(),
		Token:            tokenString,
		NextRequiredStep: record.NextRequiredStep(),
		DeviceName:       deviceName,
		ExpiresAt:        record.ExpiresAt,
	})
}

func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Status(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, err := httputil.Decode[advanceRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	step, err := session.ParseStep(req.Step)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.sessions.Advance(ctx, userID, req.DeviceFingerprint, step, req.Evidence)
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
	}
	h.audit.Emit(ctx, audit.Event{
		UserID:    userID.String(),
		SessionID: requestcontext.SessionID(ctx).String(),
		Action:    audit.ActionStepAdvance,
		Subject:   step.String(),
		Outcome:   outcome,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Logout(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.audit.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx).String(),
		SessionID: requestcontext.SessionID(ctx).String(),
		Action:    audit.ActionLogout,
		Outcome:   audit.OutcomeSuccess,
	})
	w.WriteHeader(http.StatusNoContent)
}
