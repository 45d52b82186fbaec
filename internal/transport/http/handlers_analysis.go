package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canguard/internal/analysis"
	"canguard/internal/audit"
	"canguard/internal/grant"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/httputil"
	"canguard/pkg/requestcontext"
)

// AnalysisHandler wires the secure analysis pipeline. Running an analysis
// needs no session token; the presented grant is the credential.
type AnalysisHandler struct {
	pipeline *analysis.Service
	audit    *audit.Publisher
	logger   *slog.Logger
}

func NewAnalysisHandler(pipeline *analysis.Service, publisher *audit.Publisher, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{pipeline: pipeline, audit: publisher, logger: logger}
}

// RegisterPublic mounts the grant-gated run endpoint.
func (h *AnalysisHandler) RegisterPublic(r chi.Router) {
	r.Post("/analysis/run", h.HandleRun)
}

// Register mounts the history query behind the auth middleware.
func (h *AnalysisHandler) Register(r chi.Router) {
	r.Get("/analysis/decisions", h.HandleDecisions)
}

func (h *AnalysisHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[runAnalysisRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := id.ParseGrantPurpose(req.Purpose); err != nil {
		httputil.WriteError(w, err)
		return
	}

	var envelope grant.Envelope
	if err := json.Unmarshal(req.Grant, &envelope); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidSignatureFormat, "malformed grant"))
		return
	}

	decision, err := h.pipeline.Run(ctx, envelope)
	if err != nil {
		h.logger.WarnContext(ctx, "analysis rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{
		UserID:  decision.UserID.String(),
		Action:  audit.ActionAnalysisDecision,
		Subject: decision.RequestID.String(),
		Outcome: string(decision.Decision),
	})
	httputil.WriteJSON(w, http.StatusOK, fromDecision(decision))
}

func (h *AnalysisHandler) HandleDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	history, err := h.pipeline.History(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]decisionResponse, 0, len(history))
	for _, d := range history {
		out = append(out, fromDecision(d))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"decisions": out})
}
