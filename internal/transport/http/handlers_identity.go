package httptransport

import (
	"crypto/ed25519"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canguard/internal/audit"
	"canguard/internal/identity"
	"canguard/internal/keys"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/httputil"
	"canguard/pkg/requestcontext"
)

// IdentityHandler wires DID issuance and resolution.
type IdentityHandler struct {
	identities *identity.Service
	keys       keys.Store
	audit      *audit.Publisher
	logger     *slog.Logger
}

func NewIdentityHandler(identities *identity.Service, keyStore keys.Store, publisher *audit.Publisher, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identities: identities, keys: keyStore, audit: publisher, logger: logger}
}

// RegisterPublic mounts resolution, which needs no session.
func (h *IdentityHandler) RegisterPublic(r chi.Router) {
	r.Get("/identity/resolve/{did}", h.HandleResolve)
}

// Register mounts creation behind the auth middleware.
func (h *IdentityHandler) Register(r chi.Router) {
	r.Post("/identity/create", h.HandleCreate)
}

func (h *IdentityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	signingKey, err := h.keys.SigningKeyFor(ctx, userID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "load signing key", err))
		return
	}
	publicKey, ok := signingKey.Public().(ed25519.PublicKey)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "unexpected key type"))
		return
	}

	record, err := h.identities.CreateIdentity(ctx, userID, publicKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionIdentityCreated,
		Subject: record.DID.String(),
		Outcome: audit.OutcomeSuccess,
	})
	httputil.WriteJSON(w, http.StatusCreated, fromIdentityRecord(record))
}

func (h *IdentityHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	did, err := id.ParseDID(chi.URLParam(r, "did"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.identities.Resolve(r.Context(), did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}
