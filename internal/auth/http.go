// ABOUTME: HTTP middleware for JWT authentication on operator endpoints
// ABOUTME: Extracts a bearer token, verifies it, and resolves the operator from the store

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/caliber/livechat/internal/store"
)

// OperatorStore is what the middleware needs from storage.
type OperatorStore interface {
	GetOperator(ctx context.Context, id string) (*store.Operator, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RequireOperator creates an HTTP middleware that admits only authenticated
// operators. A request failing any step is rejected before reaching the
// handler, so unauthenticated calls can have no side effects.
func RequireOperator(operators OperatorStore, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAuthError(w, http.StatusUnauthorized, errMsg)
				return
			}

			operatorID, err := verifier.Verify(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			op, err := operators.GetOperator(r.Context(), operatorID)
			if err != nil {
				writeAuthError(w, http.StatusForbidden, "operator not found")
				return
			}

			opCtx := &OperatorContext{
				OperatorID:  op.ID,
				Username:    op.Username,
				DisplayName: op.DisplayName,
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), opCtx)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
