// Package middleware holds the HTTP middleware for the REST surface.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
)

// Authenticate validates the bearer token on every request and places the
// caller's identity in the request context. Tokens without a tenant id are
// rejected here, so handlers can always trust the tenant on the context.
func Authenticate(validator *auth.Validator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					respondUnauthorized(w, "Token has expired")
				case errors.Is(err, auth.ErrInvalidSignature):
					respondUnauthorized(w, "Invalid token signature")
				default:
					respondUnauthorized(w, "Invalid token")
				}
				return
			}

			userCtx := &auth.UserContext{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Email:    claims.Email,
				Roles:    claims.Roles,
			}
			ctx := auth.SetUserInContext(r.Context(), userCtx)

			logger.Debug("Request authenticated",
				zap.String("userId", claims.UserID),
				zap.String("tenantId", claims.TenantID),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the token from the Authorization header or the
// auth_token cookie. A bare token without the Bearer prefix is accepted.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// respondUnauthorized sends a 401 with the standard error envelope.
func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}
