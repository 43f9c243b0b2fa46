package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
)

// DecisionHandler serves the append-only decision ledger endpoints.
type DecisionHandler struct {
	decisions *services.DecisionService
	logger    *zap.Logger
}

// NewDecisionHandler creates a new decision handler.
func NewDecisionHandler(decisions *services.DecisionService, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{decisions: decisions, logger: logger}
}

// DecisionDraftRequest carries a decision draft, used both for the initial
// commit and as the replacement body of a supersede.
type DecisionDraftRequest struct {
	DecisionStatement  string   `json:"decisionStatement" validate:"required,max=2000"`
	OptionsConsidered  []string `json:"optionsConsidered" validate:"max=20,dive,max=500"`
	FinalChoice        string   `json:"finalChoice" validate:"required,max=1000"`
	AIInputsReferenced []string `json:"aiInputsReferenced" validate:"max=50,dive,max=500"`
	RevisitCondition   string   `json:"revisitCondition" validate:"max=1000"`
}

func (r DecisionDraftRequest) draft() entities.DecisionDraft {
	return entities.DecisionDraft{
		DecisionStatement:  r.DecisionStatement,
		OptionsConsidered:  r.OptionsConsidered,
		FinalChoice:        r.FinalChoice,
		AIInputsReferenced: r.AIInputsReferenced,
		RevisitCondition:   r.RevisitCondition,
	}
}

// DecisionResponse is the wire form of a ledger entry.
type DecisionResponse struct {
	ID                 string    `json:"id"`
	IntentID           string    `json:"intentId"`
	DecisionStatement  string    `json:"decisionStatement"`
	OptionsConsidered  []string  `json:"optionsConsidered,omitempty"`
	FinalChoice        string    `json:"finalChoice"`
	HumanApprover      string    `json:"humanApprover"`
	AIInputsReferenced []string  `json:"aiInputsReferenced,omitempty"`
	DecisionTimestamp  time.Time `json:"decisionTimestamp"`
	RevisitCondition   string    `json:"revisitCondition,omitempty"`
	Status             string    `json:"status"`
}

// SupersedeResponse pairs the retired decision with its replacement.
type SupersedeResponse struct {
	Original    DecisionResponse `json:"original"`
	Replacement DecisionResponse `json:"replacement"`
}

func toDecisionResponse(decision *entities.Decision) DecisionResponse {
	return DecisionResponse{
		ID:                 decision.ID(),
		IntentID:           decision.IntentID(),
		DecisionStatement:  decision.DecisionStatement(),
		OptionsConsidered:  decision.OptionsConsidered(),
		FinalChoice:        decision.FinalChoice(),
		HumanApprover:      decision.HumanApprover(),
		AIInputsReferenced: decision.AIInputsReferenced(),
		DecisionTimestamp:  decision.DecisionTimestamp(),
		RevisitCondition:   decision.RevisitCondition(),
		Status:             string(decision.Status()),
	}
}

func toDecisionResponses(decisions []*entities.Decision) []DecisionResponse {
	out := make([]DecisionResponse, 0, len(decisions))
	for _, decision := range decisions {
		out = append(out, toDecisionResponse(decision))
	}
	return out
}

// Commit handles POST /api/v1/intents/{intentID}/decisions. The caller is
// recorded as the human approver.
func (h *DecisionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req DecisionDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	decision, err := h.decisions.Commit(r.Context(), user.TenantID, user.UserID, intentID, req.draft())
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toDecisionResponse(decision))
}

// ListByIntent handles GET /api/v1/intents/{intentID}/decisions, newest
// first.
func (h *DecisionHandler) ListByIntent(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	decisions, err := h.decisions.ListByIntent(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toDecisionResponses(decisions))
}

// ListActive handles GET /api/v1/intents/{intentID}/decisions/active: the
// decisions still standing for the intent.
func (h *DecisionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	decisions, err := h.decisions.GetActiveByIntent(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toDecisionResponses(decisions))
}

// GetLedger handles GET /api/v1/intents/{intentID}/ledger: the full history
// in commit order, superseded entries included.
func (h *DecisionHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	decisions, err := h.decisions.GetLedger(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toDecisionResponses(decisions))
}

// Get handles GET /api/v1/decisions/{decisionID}.
func (h *DecisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	decisionID, err := pathID(r, "decisionID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	decision, err := h.decisions.Get(r.Context(), user.TenantID, decisionID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toDecisionResponse(decision))
}

// Supersede handles POST /api/v1/decisions/{decisionID}/supersede. The body
// is the replacement draft; retiring the original and committing the
// replacement happen atomically.
func (h *DecisionHandler) Supersede(w http.ResponseWriter, r *http.Request) {
	decisionID, err := pathID(r, "decisionID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req DecisionDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	original, replacement, err := h.decisions.Supersede(r.Context(), user.TenantID, user.UserID, decisionID, req.draft())
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, SupersedeResponse{
		Original:    toDecisionResponse(original),
		Replacement: toDecisionResponse(replacement),
	})
}
