package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rashik/snipvault/internal/model"
)

var errNoToken = errors.New("auth: no bearer token")

// contextKey is unexported so only this package can read or write identity
// values in a request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireIdentity enforces authentication on protected routes. It reads the
// Authorization: Bearer header, verifies the token, and stores the resolved
// identity in the request context. Missing or invalid tokens end the request
// with 401.
func RequireIdentity(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := extractIdentity(r, verifier)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalIdentity resolves the identity if a valid token is present but
// never blocks the request. Anonymous callers proceed with no identity in
// the context, which restricts them to public snippets downstream.
func OptionalIdentity(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, err := extractIdentity(r, verifier); err == nil && ident.ID != "" {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity.
// The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(model.Identity)
	return ident, ok && ident.ID != ""
}

func extractIdentity(r *http.Request, verifier *Verifier) (model.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return model.Identity{}, errNoToken
	}
	return verifier.Verify(token)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
}
