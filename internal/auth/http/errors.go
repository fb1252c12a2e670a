package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// errorTable maps service errors to their wire form. Order matters only for
// errors that wrap more than one sentinel.
var errorTable = []struct {
	target error
	api    *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrTokenExpired, authsdk.ErrTokenExpired},
	{service.ErrTokenMalformed, authsdk.ErrTokenMalformed},
	{service.ErrTokenSignatureInvalid, authsdk.ErrTokenSignatureInvalid},
	{service.ErrTokenWrongType, authsdk.ErrTokenWrongType},
	{service.ErrSessionRevoked, authsdk.ErrSessionRevoked},
	{service.ErrTwoFactorCodeInvalid, authsdk.ErrTwoFactorCodeInvalid},
	{service.ErrCodeAlreadyConsumed, authsdk.ErrCodeAlreadyConsumed},
	{service.ErrPendingLoginExpired, authsdk.ErrPendingLoginExpired},
	{service.ErrTwoFactorSetupNotPending, authsdk.ErrTwoFactorSetupNotPending},
	{service.ErrTwoFactorAlreadyEnabled, authsdk.ErrTwoFactorAlreadyEnabled},
	{service.ErrTwoFactorNotEnabled, authsdk.ErrTwoFactorNotEnabled},
	{service.ErrEmailTaken, authsdk.ErrEmailTaken},
	{service.ErrWeakPassword, authsdk.ErrWeakPassword},
	{service.ErrInvalidRequest, authsdk.ErrInvalidRequest},
	{service.ErrForbidden, authsdk.ErrForbidden},
	{service.ErrIdentityNotFound, authsdk.ErrNotFound},
	{service.ErrSessionNotFound, authsdk.ErrNotFound},
	{service.ErrTrustedDeviceNotFound, authsdk.ErrNotFound},
	{service.ErrRateLimited, authsdk.ErrRateLimited},
	{service.ErrCodeDeliveryFailed, authsdk.ErrCodeDeliveryFailed},
	{service.ErrStoreUnavailable, authsdk.ErrStoreUnavailable},
}

// apiError translates err for the wire. Unknown errors become server_error.
func apiError(err error) *authsdk.APIError {
	var limited *service.RateLimitError
	if errors.As(err, &limited) {
		return authsdk.ErrRateLimited.WithRetryAfter(limited.RetryAfter)
	}
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.api
		}
	}
	return authsdk.ErrServerError
}

// writeError renders err. It satisfies httpx.ErrorWriter.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	apiErr.WriteError(w)
}

// Authenticator adapts the orchestrator to httpx.Authenticator.
type Authenticator struct {
	Orchestrator *service.Orchestrator
}

func (a *Authenticator) AuthenticateBearer(ctx context.Context, token, capability string) (httpx.Principal, error) {
	var req *service.Requirement
	if capability != "" {
		req = &service.Requirement{Capability: domain.Capability(capability)}
	}

	p, err := a.Orchestrator.Authenticate(ctx, token, req)
	if err != nil {
		return httpx.Principal{}, err
	}

	out := httpx.Principal{
		IdentityID: p.IdentityID,
		SessionID:  p.SessionID,
		Role:       string(p.Role),
		AMR:        p.AMR,
	}
	if p.Permissions != nil {
		for _, c := range p.Permissions.Capabilities {
			out.Capabilities = append(out.Capabilities, string(c))
		}
	}
	return out, nil
}

// principal converts the request principal back into the domain form the
// orchestrator takes.
func principal(r *http.Request) (domain.Principal, bool) {
	p, ok := httpx.PrincipalFrom(r.Context())
	if !ok {
		return domain.Principal{}, false
	}
	return domain.Principal{
		IdentityID: p.IdentityID,
		SessionID:  p.SessionID,
		Role:       domain.Role(p.Role),
		AMR:        p.AMR,
	}, true
}

// clientMeta describes the calling device.
func clientMeta(r *http.Request) domain.ClientMeta {
	return domain.ClientMeta{
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}
