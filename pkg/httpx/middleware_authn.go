package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// Authenticator validates a bearer token and, when capability is not empty,
// checks that the caller holds it.
type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token, capability string) (Principal, error)
}

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the token from an RFC 6750 Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthnMiddleware authenticates the bearer token and injects the Principal.
func AuthnMiddleware(a Authenticator, onErr ErrorWriter) Middleware {
	return authenticate(a, "", onErr)
}

func authenticate(a Authenticator, capability string, onErr ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := a.AuthenticateBearer(ctx, raw, capability)
			if err != nil {
				slogx.FromContext(ctx).Warn("bearer authentication failed", "capability", capability, "err", err)
				if onErr != nil {
					onErr(w, r, err)
					return
				}
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = WithPrincipal(ctx, p)
			ctx = slogx.WithIdentity(ctx, p.IdentityID, p.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
