// Package handlers implements the REST endpoints of the suite. Every
// handler follows the same shape: decode and validate the payload, pull the
// caller from the context, call one service method, translate the result.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
	"github.com/DoozHub/dooz-pm-suite/pkg/utils"
)

// errorBody is the JSON envelope for every failed request.
type errorBody struct {
	Error   bool                   `json:"error"`
	Message string                 `json:"message"`
	Code    int                    `json:"code"`
	Type    string                 `json:"type,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondJSON writes data with the given status.
func respondJSON(logger *zap.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError maps an error onto the HTTP surface. Typed errors carry
// their own status and structured details; anything untyped becomes a 500
// whose detail stays in the log, never in the response.
func respondError(logger *zap.Logger, w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Error(err))
		}
		respondJSON(logger, w, status, errorBody{
			Error:   true,
			Message: appErr.Message,
			Code:    status,
			Type:    string(appErr.Type),
			Details: appErr.Details,
		})
		return
	}

	logger.Error("Unhandled error", zap.Error(err))
	respondJSON(logger, w, http.StatusInternalServerError, errorBody{
		Error:   true,
		Message: "internal server error",
		Code:    http.StatusInternalServerError,
	})
}

// decodeJSON parses the request body into dst and checks its validate tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return utils.ValidateStruct(dst)
}

// requireUser pulls the authenticated caller from the request context.
func requireUser(r *http.Request) (*auth.UserContext, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("")
	}
	return user, nil
}

// pathID returns the named URL parameter, requiring UUID shape so malformed
// ids fail fast instead of turning into storage lookups.
func pathID(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewValidationError(name + " must be a valid UUID")
	}
	return id, nil
}
