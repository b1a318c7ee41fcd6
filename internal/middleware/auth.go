package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"resto-be/internal/domain"
	"resto-be/internal/service"
	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
)

// SessionCookieName is the cookie holding the session credential
const SessionCookieName = "session"

// ContextKey represents keys used in request context
type ContextKey string

const (
	// ClaimsContextKey is the key for verified identity claims in context
	ClaimsContextKey ContextKey = "claims"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// ClaimsFromContext returns the verified claims attached by SessionAuth
func ClaimsFromContext(ctx context.Context) (*domain.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*domain.Claims)
	return claims, ok
}

// SessionAuth creates the session verification middleware. It is the only
// sanctioned way routes learn the caller's identity: handlers never parse
// the cookie themselves.
func SessionAuth(identity service.IdentityProvider, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeErrorResponse(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), logger)
				return
			}

			ctx := r.Context()
			claims, err := identity.VerifySession(ctx, cookie.Value, true)
			if err != nil {
				logger.WithError(err).Debug("Session verification failed")
				writeErrorResponse(w, errors.AsAppError(err), logger)
				return
			}

			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			r = r.WithContext(ctx)

			logger.WithField("user_id", claims.Sub).Debug("Session verified")

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole enforces a role claim after SessionAuth has run. A missing
// role claim counts as customer. Mismatch is 403, not 401: the caller is
// known but not permitted.
func RequireRole(logger *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeErrorResponse(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), logger)
				return
			}

			role := claims.EffectiveRole()
			if !allowed[role] {
				logger.WithFields(map[string]interface{}{
					"user_id": claims.Sub,
					"role":    role,
				}).Warn("Role check failed")
				writeErrorResponse(w, errors.NewAuthorizationError("Forbidden: Insufficient permissions"), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).Debug("Request rejected")

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
	}
}
