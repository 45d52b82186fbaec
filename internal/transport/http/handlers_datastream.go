package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canguard/internal/audit"
	"canguard/internal/datastream"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/httputil"
	"canguard/pkg/requestcontext"
)

// DIDDirectory resolves the caller's identifier for blob ownership tags.
type DIDDirectory interface {
	DIDOf(ctx context.Context, userID id.UserID) (id.DID, error)
}

// CaptureHandler ingests behavioral samples into the encrypted data stream.
type CaptureHandler struct {
	capture    *datastream.Service
	identities DIDDirectory
	audit      *audit.Publisher
	logger     *slog.Logger
}

func NewCaptureHandler(capture *datastream.Service, identities DIDDirectory, publisher *audit.Publisher, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{capture: capture, identities: identities, audit: publisher, logger: logger}
}

func (h *CaptureHandler) Register(r chi.Router) {
	r.Post("/capture/behavior", h.HandleCapture)
}

func (h *CaptureHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, err := httputil.Decode[captureRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.Payload) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "payload is required"))
		return
	}
	dataType := req.DataType
	if dataType == "" {
		dataType = datastream.DataTypeTypingSample
	}

	ownerDID, err := h.identities.DIDOf(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cid, err := h.capture.Capture(ctx, userID, ownerDID, dataType, req.Payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionCapture,
		Subject: cid.String(),
		Outcome: audit.OutcomeSuccess,
	})
	httputil.WriteJSON(w, http.StatusCreated, captureResponse{CID: cid.String()})
}
