package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// ProposalHandler serves the proposal review queue endpoints.
type ProposalHandler struct {
	proposals *services.ProposalService
	logger    *zap.Logger
}

// NewProposalHandler creates a new proposal handler.
func NewProposalHandler(proposals *services.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, logger: logger}
}

// SubmitProposalRequest is the payload for POST /proposals. intentId may be
// empty when the suggestion precedes any intent.
type SubmitProposalRequest struct {
	IntentID         string   `json:"intentId" validate:"omitempty,uuid"`
	ProposalType     string   `json:"proposalType" validate:"required,oneof=decision assumption risk question"`
	Content          string   `json:"content" validate:"required"`
	PromptTemplateID string   `json:"promptTemplateId" validate:"max=200"`
	ModelUsed        string   `json:"modelUsed" validate:"max=200"`
	Confidence       *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// ReviewProposalRequest is the payload for POST /proposals/{id}/review.
// intentId optionally binds a free-floating proposal to an intent when the
// action is accept.
type ReviewProposalRequest struct {
	Action   string `json:"action" validate:"required,oneof=accept reject park"`
	IntentID string `json:"intentId" validate:"omitempty,uuid"`
}

// ProposalResponse is the wire form of a proposal.
type ProposalResponse struct {
	ID               string     `json:"id"`
	IntentID         string     `json:"intentId,omitempty"`
	ProposalType     string     `json:"proposalType"`
	Content          string     `json:"content"`
	PromptTemplateID string     `json:"promptTemplateId,omitempty"`
	ModelUsed        string     `json:"modelUsed,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	Status           string     `json:"status"`
	ReviewedBy       string     `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ReviewResponse reports the reviewed proposal and, for accepted proposals,
// the id of the record the acceptance materialized. Question proposals
// never materialize anything.
type ReviewResponse struct {
	Proposal       ProposalResponse `json:"proposal"`
	MaterializedID string           `json:"materializedId,omitempty"`
}

func toProposalResponse(proposal *entities.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:               proposal.ID(),
		IntentID:         proposal.IntentID(),
		ProposalType:     string(proposal.ProposalType()),
		Content:          proposal.Content(),
		PromptTemplateID: proposal.PromptTemplateID(),
		ModelUsed:        proposal.ModelUsed(),
		Confidence:       proposal.Confidence(),
		Status:           string(proposal.Status()),
		ReviewedBy:       proposal.ReviewedBy(),
		ReviewedAt:       proposal.ReviewedAt(),
		CreatedAt:        proposal.CreatedAt(),
	}
}

func toProposalResponses(proposals []*entities.Proposal) []ProposalResponse {
	out := make([]ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		out = append(out, toProposalResponse(proposal))
	}
	return out
}

// Submit handles POST /api/v1/proposals: a new pending suggestion enters
// the review queue. Content is stored verbatim; nothing is validated beyond
// shape until a human accepts it.
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	proposal, err := h.proposals.Submit(r.Context(), user.TenantID, req.IntentID, entities.ProposalType(req.ProposalType), req.Content, req.PromptTemplateID, req.ModelUsed, req.Confidence)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toProposalResponse(proposal))
}

// List handles GET /api/v1/proposals?status=&intentId=.
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	status := entities.ProposalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", entities.ProposalStatusPending, entities.ProposalStatusAccepted, entities.ProposalStatusRejected, entities.ProposalStatusParked:
	default:
		respondError(h.logger, w, apperrors.NewValidationError(fmt.Sprintf("unknown proposal status %q", status)))
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	proposals, err := h.proposals.List(r.Context(), user.TenantID, ports.ProposalFilter{
		Status:   status,
		IntentID: r.URL.Query().Get("intentId"),
	})
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toProposalResponses(proposals))
}

// Get handles GET /api/v1/proposals/{proposalID}.
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	proposalID, err := pathID(r, "proposalID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	proposal, err := h.proposals.Get(r.Context(), user.TenantID, proposalID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toProposalResponse(proposal))
}

// Review handles POST /api/v1/proposals/{proposalID}/review. A proposal is
// reviewed at most once; a second attempt conflicts with the recorded
// outcome.
func (h *ProposalHandler) Review(w http.ResponseWriter, r *http.Request) {
	proposalID, err := pathID(r, "proposalID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req ReviewProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	switch req.Action {
	case "accept":
		result, err := h.proposals.Accept(r.Context(), user.TenantID, user.UserID, proposalID, req.IntentID)
		if err != nil {
			respondError(h.logger, w, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, ReviewResponse{
			Proposal:       toProposalResponse(result.Proposal),
			MaterializedID: result.MaterializedID,
		})
	case "reject":
		proposal, err := h.proposals.Reject(r.Context(), user.TenantID, user.UserID, proposalID)
		if err != nil {
			respondError(h.logger, w, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, ReviewResponse{Proposal: toProposalResponse(proposal)})
	case "park":
		proposal, err := h.proposals.Park(r.Context(), user.TenantID, user.UserID, proposalID)
		if err != nil {
			respondError(h.logger, w, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, ReviewResponse{Proposal: toProposalResponse(proposal)})
	}
}
