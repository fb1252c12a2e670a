package httpx

import (
	"net/http"
	"strings"
)

// RequireCapability authenticates the request like AuthnMiddleware and then
// requires capability. The check runs inside the Authenticator so liveness is
// established before permissions are consulted.
func RequireCapability(a Authenticator, capability string, onErr ErrorWriter) Middleware {
	return authenticate(a, capability, onErr)
}

// RequireAnyCapability checks the Principal already in the context. It must
// run after AuthnMiddleware.
func RequireAnyCapability(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			for _, c := range required {
				if p.Has(c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeInsufficientScope(w, required...)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeInsufficientScope(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "missing capability " + strings.Join(required, " or "),
	})
}
