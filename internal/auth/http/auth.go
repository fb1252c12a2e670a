package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
)

// AuthHandler serves the credential endpoints: register, login, the second
// factor step, refresh and logout.
type AuthHandler struct {
	Orchestrator *service.Orchestrator
	Identities   *service.IdentityService
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a local identity with the guest role. Does not sign in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Email and password"
//	@Success		201		{object}	authsdk.RegisterResponse	"Identity created"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_request or weak_password"
//	@Failure		409		{object}	authsdk.ErrorResponse		"email_taken"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	identity, err := h.Identities.Register(r.Context(), req.Email, req.Password, domain.RoleGuest)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Role:       string(identity.Role),
	})
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Checks email and password. Returns tokens, or 409 with a pending login when a second factor is enabled.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest				true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse				"Signed in"
//	@Failure		401		{object}	authsdk.ErrorResponse				"invalid_credentials"
//	@Failure		409		{object}	authsdk.TwoFactorRequiredError		"two_factor_required"
//	@Failure		429		{object}	authsdk.ErrorResponse				"rate_limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	meta := clientMeta(r)
	meta.DeviceToken = req.DeviceToken

	res, err := h.Orchestrator.Login(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.TwoFactorRequired() {
		(&authsdk.TwoFactorRequiredError{
			PendingLoginID: res.PendingLoginID,
			Methods:        res.Methods,
		}).WriteError(w)
		return
	}
	writeTokens(w, res.Tokens)
}

// HandleVerifyTwoFactor godoc
//
//	@Summary		Complete login with a second factor
//	@Description	Accepts a TOTP or emailed code, or a recovery code. Failed attempts count against the pending login. With remember_device the response carries a device_token that skips the second factor on later logins.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorVerifyRequest	true	"Pending login and proof"
//	@Success		200		{object}	authsdk.TokenResponse			"Signed in"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse			"two_factor_code_invalid or pending_login_expired"
//	@Router			/v1/auth/2fa/verify [post].
func (h *AuthHandler) HandleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TwoFactorVerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	proof := domain.TwoFactorProof{Code: req.Code, RecoveryCode: req.RecoveryCode, RememberDevice: req.RememberDevice}
	if req.PendingLoginID == "" || proof.Empty() {
		authsdk.ErrInvalidRequest.WithDescription("pending_login_id and a code are required").WriteError(w)
		return
	}

	tokens, err := h.Orchestrator.VerifyTwoFactor(r.Context(), req.PendingLoginID, proof, clientMeta(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeTokens(w, tokens)
}

// HandleSendLoginCode godoc
//
//	@Summary		Resend the emailed login code
//	@Description	Issues a fresh code for a pending login whose second factor is email. Older codes stop working.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.SendLoginCodeRequest	true	"Pending login"
//	@Success		204		"Code sent"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Failure		502		{object}	authsdk.ErrorResponse	"code_delivery_failed"
//	@Router			/v1/auth/2fa/email [post].
func (h *AuthHandler) HandleSendLoginCode(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SendLoginCodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.PendingLoginID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Orchestrator.SendLoginCode(r.Context(), req.PendingLoginID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh godoc
//
//	@Summary		Refresh
//	@Description	Exchanges a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse	"New access token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"token_expired, token_malformed, token_signature_invalid, token_wrong_type or session_revoked"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tokens, err := h.Orchestrator.Refresh(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeTokens(w, tokens)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the caller's session, or every session of the identity with scope all_devices.
//	@Description	Succeeds for an already revoked session as long as the access token signature is valid.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	false	"Scope, defaults to this_device"
//	@Success		204		"Logged out"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
	}
	scope := domain.LogoutScope(strings.TrimSpace(req.Scope))
	if scope == "" {
		scope = domain.LogoutThisDevice
	}

	token, ok := httpx.BearerToken(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}
	if err := h.Orchestrator.Logout(r.Context(), token, scope); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWhoAmI godoc
//
//	@Summary		Current caller
//	@Description	Returns the authenticated identity, its role and resolved capabilities.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.WhoAmIResponse	"Caller"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid token"
//	@Router			/v1/auth/whoami [get].
func (h *AuthHandler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	perms, err := h.Orchestrator.Permissions.Resolve(r.Context(), p.IdentityID, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	caps := make([]string, 0, len(perms.Capabilities))
	for _, c := range perms.Capabilities {
		caps = append(caps, string(c))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.WhoAmIResponse{
		IdentityID:   p.IdentityID,
		SessionID:    p.SessionID,
		Role:         string(perms.Role),
		AMR:          p.AMR,
		Capabilities: caps,
	})
}

func writeTokens(w http.ResponseWriter, tokens *domain.TokenPair) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    int(tokens.ExpiresIn.Seconds()),
		SessionID:    tokens.SessionID,
		DeviceToken:  tokens.DeviceToken,
	})
}
