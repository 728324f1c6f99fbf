package auth

import (
	"context"
	"net/http"
	"strings"

	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/google/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

// RequireSession validates the bearer session token and stores the claims in
// the request context.
func RequireSession(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				pkghttp.WriteUnauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := sm.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), claims)))
		})
	}
}

// RequireRole rejects sessions whose role does not match
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := SessionFromContext(r.Context())
			if !ok || claims.Role != role {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithSession stores session claims in the context
func ContextWithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionContextKey, claims)
}

// SessionFromContext retrieves the session claims stored by RequireSession
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*SessionClaims)
	return claims, ok
}

// UserIDFromContext parses the session's user id
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
