package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// IntentHandler serves the intent lifecycle endpoints.
type IntentHandler struct {
	intents *services.IntentService
	logger  *zap.Logger
}

// NewIntentHandler creates a new intent handler.
func NewIntentHandler(intents *services.IntentService, logger *zap.Logger) *IntentHandler {
	return &IntentHandler{intents: intents, logger: logger}
}

// CreateIntentRequest is the payload for POST /intents.
type CreateIntentRequest struct {
	Title           string `json:"title" validate:"required,max=500"`
	Description     string `json:"description" validate:"max=5000"`
	VisibilityScope string `json:"visibilityScope" validate:"omitempty,oneof=private team organization"`
}

// TransitionRequest is the payload for POST /intents/{intentID}/transition.
type TransitionRequest struct {
	TargetState string `json:"targetState" validate:"required,oneof=research planning execution archived"`
}

// ConfidenceRequest is the payload for POST /intents/{intentID}/confidence.
type ConfidenceRequest struct {
	Level *float64 `json:"level" validate:"required,gte=0,lte=1"`
}

// IntentResponse is the wire form of an intent.
type IntentResponse struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	CurrentState        string     `json:"currentState"`
	CreatedBy           string     `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastHumanReviewedAt *time.Time `json:"lastHumanReviewedAt,omitempty"`
	ConfidenceLevel     *float64   `json:"confidenceLevel,omitempty"`
	VisibilityScope     string     `json:"visibilityScope"`
	Version             int        `json:"version"`
}

// ContextResponse carries the memory-backed answer for a context query.
type ContextResponse struct {
	Context string `json:"context"`
}

func toIntentResponse(intent *entities.Intent) IntentResponse {
	return IntentResponse{
		ID:                  intent.ID(),
		Title:               intent.Title(),
		Description:         intent.Description(),
		CurrentState:        string(intent.CurrentState()),
		CreatedBy:           intent.CreatedBy(),
		CreatedAt:           intent.CreatedAt(),
		LastHumanReviewedAt: intent.LastHumanReviewedAt(),
		ConfidenceLevel:     intent.ConfidenceLevel(),
		VisibilityScope:     string(intent.VisibilityScope()),
		Version:             intent.Version(),
	}
}

// Create handles POST /api/v1/intents. New intents always start in research.
func (h *IntentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	intent, err := h.intents.Create(r.Context(), user.TenantID, user.UserID, req.Title, req.Description, entities.VisibilityScope(req.VisibilityScope))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toIntentResponse(intent))
}

// List handles GET /api/v1/intents with an optional ?state= filter.
func (h *IntentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	intents, err := h.intents.List(r.Context(), user.TenantID, r.URL.Query().Get("state"))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	out := make([]IntentResponse, 0, len(intents))
	for _, intent := range intents {
		out = append(out, toIntentResponse(intent))
	}
	respondJSON(h.logger, w, http.StatusOK, out)
}

// Get handles GET /api/v1/intents/{intentID}.
func (h *IntentHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	intent, err := h.intents.Get(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toIntentResponse(intent))
}

// Transition handles POST /api/v1/intents/{intentID}/transition. Illegal
// moves come back as conflicts carrying the allowed states.
func (h *IntentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	intent, err := h.intents.Transition(r.Context(), user.TenantID, intentID, user.UserID, entities.IntentState(req.TargetState))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toIntentResponse(intent))
}

// MarkReviewed handles POST /api/v1/intents/{intentID}/review. Reviewing is
// idempotent and legal in every state, including archived.
func (h *IntentHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
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

	intent, err := h.intents.MarkReviewed(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toIntentResponse(intent))
}

// SetConfidence handles POST /api/v1/intents/{intentID}/confidence.
func (h *IntentHandler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req ConfidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	intent, err := h.intents.SetConfidence(r.Context(), user.TenantID, intentID, *req.Level)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toIntentResponse(intent))
}

// GetContext handles GET /api/v1/intents/{intentID}/context?q=. The answer
// is empty when no memory backend is configured, never an error.
func (h *IntentHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(h.logger, w, apperrors.NewValidationError("query parameter q is required"))
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	answer, err := h.intents.GetContext(r.Context(), user.TenantID, intentID, query)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, ContextResponse{Context: answer})
}
