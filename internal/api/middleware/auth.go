// Package middleware holds the HTTP middleware of the agent endpoint.
package middleware

import (
	"net/http"

	"github.com/matiasleandrokruk/fenixmcp/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
)

// Credential copies the raw API key into the request context under ctxkeys.Credential.
//
// Flow:
//  1. Read the custom header (header, e.g. "X-Api-Key")
//  2. Fall back to "Authorization: Bearer <token>"
//  3. Inject whatever was found, possibly nothing, and call next
//
// It never rejects: resolution and the JSON-RPC 401 envelope belong to the dispatcher,
// which also needs the request id from the body.
func Credential(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := identity.ExtractCredential(r, header)
			if credential == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.Credential, credential)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
