package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
)

// ExtractHandler runs the AI extraction pipeline over free-form text.
type ExtractHandler struct {
	extraction *services.ExtractionService
	metrics    *observability.Collector
	logger     *zap.Logger
}

// NewExtractHandler creates a new extraction handler. metrics may be nil
// when the collector is disabled.
func NewExtractHandler(extraction *services.ExtractionService, metrics *observability.Collector, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{extraction: extraction, metrics: metrics, logger: logger}
}

// ExtractRequest is the payload for POST /extract. intentId may be empty
// when the conversation precedes any intent.
type ExtractRequest struct {
	IntentID string `json:"intentId" validate:"omitempty,uuid"`
	Content  string `json:"content" validate:"required,max=50000"`
}

// ExtractResponse lists the pending proposals the run enqueued.
type ExtractResponse struct {
	Proposals []ProposalResponse `json:"proposals"`
	Count     int                `json:"count"`
}

// Extract handles POST /api/v1/extract. Every extracted suggestion becomes
// a pending proposal; nothing is materialized without a human review.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	start := time.Now()
	proposals, err := h.extraction.Extract(r.Context(), user.TenantID, req.IntentID, req.Content)
	if h.metrics != nil {
		h.metrics.CompletionDuration.Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.ExtractionRuns.WithLabelValues(status).Inc()
	}
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, ExtractResponse{
		Proposals: toProposalResponses(proposals),
		Count:     len(proposals),
	})
}
