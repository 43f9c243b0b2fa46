package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
)

// RegistryHandler serves the assumption, risk and task endpoints. Records
// created here are always human-origin; AI-origin records only appear by
// accepting a proposal.
type RegistryHandler struct {
	registry *services.RegistryService
	logger   *zap.Logger
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(registry *services.RegistryService, logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, logger: logger}
}

// CreateAssumptionRequest is the payload for POST /intents/{id}/assumptions.
type CreateAssumptionRequest struct {
	Statement       string   `json:"statement" validate:"required,max=2000"`
	ConfidenceLevel *float64 `json:"confidenceLevel" validate:"omitempty,gte=0,lte=1"`
	ExpiryHint      string   `json:"expiryHint" validate:"max=500"`
}

// CreateRiskRequest is the payload for POST /intents/{id}/risks.
type CreateRiskRequest struct {
	Statement       string `json:"statement" validate:"required,max=2000"`
	Severity        string `json:"severity" validate:"required,oneof=low medium high critical"`
	Likelihood      string `json:"likelihood" validate:"required,oneof=low medium high"`
	MitigationNotes string `json:"mitigationNotes" validate:"max=2000"`
}

// RiskStatusRequest is the payload for POST /risks/{id}/status. Active is
// not a target: a risk leaves active exactly once.
type RiskStatusRequest struct {
	Status          string `json:"status" validate:"required,oneof=mitigated accepted"`
	MitigationNotes string `json:"mitigationNotes" validate:"max=2000"`
}

// CreateTaskRequest is the payload for POST /intents/{id}/tasks.
type CreateTaskRequest struct {
	Title             string     `json:"title" validate:"required,max=500"`
	Description       string     `json:"description" validate:"max=5000"`
	DecisionID        string     `json:"decisionId" validate:"omitempty,uuid"`
	Owner             string     `json:"owner" validate:"max=200"`
	SLA               *time.Time `json:"sla"`
	ExternalSystemRef string     `json:"externalSystemRef" validate:"max=500"`
}

// TaskStatusRequest is the payload for POST /tasks/{id}/status.
type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed blocked cancelled"`
}

// AssignTaskRequest is the payload for POST /tasks/{id}/assign.
type AssignTaskRequest struct {
	Owner string `json:"owner" validate:"required,max=200"`
}

// AssumptionResponse is the wire form of an assumption.
type AssumptionResponse struct {
	ID              string    `json:"id"`
	IntentID        string    `json:"intentId"`
	Statement       string    `json:"statement"`
	ConfidenceLevel *float64  `json:"confidenceLevel,omitempty"`
	CreatedFrom     string    `json:"createdFrom"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiryHint      string    `json:"expiryHint,omitempty"`
	Status          string    `json:"status"`
}

// RiskResponse is the wire form of a risk.
type RiskResponse struct {
	ID              string    `json:"id"`
	IntentID        string    `json:"intentId"`
	Statement       string    `json:"statement"`
	Severity        string    `json:"severity"`
	Likelihood      string    `json:"likelihood"`
	CreatedFrom     string    `json:"createdFrom"`
	MitigationNotes string    `json:"mitigationNotes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Status          string    `json:"status"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID                string     `json:"id"`
	IntentID          string     `json:"intentId"`
	DecisionID        string     `json:"decisionId,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Owner             string     `json:"owner,omitempty"`
	Status            string     `json:"status"`
	SLA               *time.Time `json:"sla,omitempty"`
	ExternalSystemRef string     `json:"externalSystemRef,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toAssumptionResponse(assumption *entities.Assumption) AssumptionResponse {
	return AssumptionResponse{
		ID:              assumption.ID(),
		IntentID:        assumption.IntentID(),
		Statement:       assumption.Statement(),
		ConfidenceLevel: assumption.ConfidenceLevel(),
		CreatedFrom:     string(assumption.CreatedFrom()),
		CreatedAt:       assumption.CreatedAt(),
		ExpiryHint:      assumption.ExpiryHint(),
		Status:          string(assumption.Status()),
	}
}

func toRiskResponse(risk *entities.Risk) RiskResponse {
	return RiskResponse{
		ID:              risk.ID(),
		IntentID:        risk.IntentID(),
		Statement:       risk.Statement(),
		Severity:        string(risk.Severity()),
		Likelihood:      string(risk.Likelihood()),
		CreatedFrom:     string(risk.CreatedFrom()),
		MitigationNotes: risk.MitigationNotes(),
		CreatedAt:       risk.CreatedAt(),
		Status:          string(risk.Status()),
	}
}

func toTaskResponse(task *entities.Task) TaskResponse {
	return TaskResponse{
		ID:                task.ID(),
		IntentID:          task.IntentID(),
		DecisionID:        task.DecisionID(),
		Title:             task.Title(),
		Description:       task.Description(),
		Owner:             task.Owner(),
		Status:            string(task.Status()),
		SLA:               task.SLA(),
		ExternalSystemRef: task.ExternalSystemRef(),
		CreatedAt:         task.CreatedAt(),
	}
}

// CreateAssumption handles POST /api/v1/intents/{intentID}/assumptions.
func (h *RegistryHandler) CreateAssumption(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req CreateAssumptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	assumption, err := h.registry.CreateAssumption(r.Context(), user.TenantID, intentID, req.Statement, req.ConfidenceLevel, entities.OriginHuman, req.ExpiryHint)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toAssumptionResponse(assumption))
}

// ListAssumptions handles GET /api/v1/intents/{intentID}/assumptions.
func (h *RegistryHandler) ListAssumptions(w http.ResponseWriter, r *http.Request) {
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

	assumptions, err := h.registry.ListAssumptions(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	out := make([]AssumptionResponse, 0, len(assumptions))
	for _, assumption := range assumptions {
		out = append(out, toAssumptionResponse(assumption))
	}
	respondJSON(h.logger, w, http.StatusOK, out)
}

// GetAssumption handles GET /api/v1/assumptions/{assumptionID}.
func (h *RegistryHandler) GetAssumption(w http.ResponseWriter, r *http.Request) {
	assumptionID, err := pathID(r, "assumptionID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	assumption, err := h.registry.GetAssumption(r.Context(), user.TenantID, assumptionID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toAssumptionResponse(assumption))
}

// InvalidateAssumption handles POST /api/v1/assumptions/{assumptionID}/invalidate.
// The flip happens at most once; repeating it is a conflict.
func (h *RegistryHandler) InvalidateAssumption(w http.ResponseWriter, r *http.Request) {
	assumptionID, err := pathID(r, "assumptionID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	assumption, err := h.registry.InvalidateAssumption(r.Context(), user.TenantID, assumptionID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toAssumptionResponse(assumption))
}

// CreateRisk handles POST /api/v1/intents/{intentID}/risks.
func (h *RegistryHandler) CreateRisk(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req CreateRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	risk, err := h.registry.CreateRisk(r.Context(), user.TenantID, intentID, req.Statement, entities.RiskSeverity(req.Severity), entities.RiskLikelihood(req.Likelihood), entities.OriginHuman, req.MitigationNotes)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toRiskResponse(risk))
}

// ListRisks handles GET /api/v1/intents/{intentID}/risks.
func (h *RegistryHandler) ListRisks(w http.ResponseWriter, r *http.Request) {
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

	risks, err := h.registry.ListRisks(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	out := make([]RiskResponse, 0, len(risks))
	for _, risk := range risks {
		out = append(out, toRiskResponse(risk))
	}
	respondJSON(h.logger, w, http.StatusOK, out)
}

// GetRisk handles GET /api/v1/risks/{riskID}.
func (h *RegistryHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathID(r, "riskID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	risk, err := h.registry.GetRisk(r.Context(), user.TenantID, riskID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toRiskResponse(risk))
}

// UpdateRiskStatus handles POST /api/v1/risks/{riskID}/status.
func (h *RegistryHandler) UpdateRiskStatus(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathID(r, "riskID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req RiskStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	risk, err := h.registry.ResolveRisk(r.Context(), user.TenantID, riskID, entities.RiskStatus(req.Status), req.MitigationNotes)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toRiskResponse(risk))
}

// CreateTask handles POST /api/v1/intents/{intentID}/tasks.
func (h *RegistryHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	intentID, err := pathID(r, "intentID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	task, err := h.registry.CreateTask(r.Context(), user.TenantID, intentID, req.DecisionID, req.Title, req.Description, req.Owner, req.SLA, req.ExternalSystemRef)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, toTaskResponse(task))
}

// ListTasks handles GET /api/v1/intents/{intentID}/tasks.
func (h *RegistryHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.registry.ListTasks(r.Context(), user.TenantID, intentID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task))
	}
	respondJSON(h.logger, w, http.StatusOK, out)
}

// GetTask handles GET /api/v1/tasks/{taskID}.
func (h *RegistryHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	task, err := h.registry.GetTask(r.Context(), user.TenantID, taskID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toTaskResponse(task))
}

// UpdateTaskStatus handles POST /api/v1/tasks/{taskID}/status. Completed
// and cancelled are terminal; illegal moves conflict with the allowed set.
func (h *RegistryHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req TaskStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	task, err := h.registry.UpdateTaskStatus(r.Context(), user.TenantID, taskID, entities.TaskStatus(req.Status))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toTaskResponse(task))
}

// ReassignTask handles POST /api/v1/tasks/{taskID}/assign.
func (h *RegistryHandler) ReassignTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var req AssignTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	task, err := h.registry.ReassignTask(r.Context(), user.TenantID, taskID, req.Owner)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toTaskResponse(task))
}
