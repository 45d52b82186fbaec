package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"canguard/internal/audit"
	"canguard/internal/grant"
	id "canguard/pkg/domain"
	"canguard/pkg/platform/httputil"
	"canguard/pkg/requestcontext"
)

// defaultGrantUses applies when the caller does not specify a budget.
const defaultGrantUses = 1

// GrantHandler wires grant issuance.
type GrantHandler struct {
	grants *grant.Service
	audit  *audit.Publisher
	logger *slog.Logger
}

func NewGrantHandler(grants *grant.Service, publisher *audit.Publisher, logger *slog.Logger) *GrantHandler {
	return &GrantHandler{grants: grants, audit: publisher, logger: logger}
}

func (h *GrantHandler) Register(r chi.Router) {
	r.Post("/grants/issue", h.HandleIssue)
}

func (h *GrantHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, err := httputil.Decode[issueGrantRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	holderDID, err := id.ParseDID(req.HolderDID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purpose, err := id.ParseGrantPurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resources := make([]id.CID, 0, len(req.ResourceRefs))
	for _, ref := range req.ResourceRefs {
		cid, err := id.ParseCID(ref)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resources = append(resources, cid)
	}
	maxUses := req.MaxUses
	if maxUses == 0 {
		maxUses = defaultGrantUses
	}

	envelope, err := h.grants.Issue(ctx, userID, grant.IssueRequest{
		HolderDID: holderDID,
		Resources: resources,
		Purpose:   purpose,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		MaxUses:   maxUses,
	})
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
	}
	h.audit.Emit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionGrantIssued,
		Subject: holderDID.String(),
		Outcome: outcome,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, envelope)
}
