package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"communityhub/internal/identity"
	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns the subject user ID.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// PrincipalSource resolves a user ID to a Principal from stored user state.
// Inactive or deleted users yield sentinel.ErrNotFound. The lookup runs on
// every request; stale role changes take effect on the next request.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, id uuid.UUID) (identity.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// resolved Principal to the context.
func RequireAuth(validator TokenValidator, source PrincipalSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := resolvePrincipal(w, r, validator, source, logger)
			if !ok {
				return
			}
			if p.Anonymous() {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth resolves a Principal when a bearer token is present but lets
// anonymous requests through. Invalid tokens are still rejected so a caller
// can never silently downgrade to anonymous with a bad credential.
func OptionalAuth(validator TokenValidator, source PrincipalSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := resolvePrincipal(w, r, validator, source, logger)
			if !ok {
				return
			}
			ctx := r.Context()
			if !p.Anonymous() {
				ctx = requestcontext.WithPrincipal(ctx, p)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolvePrincipal returns (principal, true) on success, (zero, true) when no
// token was supplied, and (zero, false) after writing an error response.
func resolvePrincipal(w http.ResponseWriter, r *http.Request, validator TokenValidator, source PrincipalSource, logger *slog.Logger) (identity.Principal, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return identity.Principal{}, true
	}

	userID, err := validator.Validate(token)
	if err != nil {
		logger.WarnContext(r.Context(), "invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		unauthorized(w, "invalid or expired token")
		return identity.Principal{}, false
	}

	p, err := source.PrincipalByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			unauthorized(w, "account not found or deactivated")
			return identity.Principal{}, false
		}
		logger.ErrorContext(r.Context(), "principal lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"storage_failure"}`))
		return identity.Principal{}, false
	}
	return p, true
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
