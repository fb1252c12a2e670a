package http

import (
	"net/http"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
)

// TwoFactorHandler manages the caller's own second factor.
type TwoFactorHandler struct {
	Orchestrator *service.Orchestrator
}

// HandleStatus godoc
//
//	@Summary		Two factor status
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TwoFactorStatusResponse	"State, method and remaining recovery codes"
//	@Failure		401	{object}	authsdk.ErrorResponse			"invalid token"
//	@Router			/v1/2fa [get].
func (h *TwoFactorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	status, err := h.Orchestrator.TwoFactorStatus(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorStatusResponse{
		State:                  string(status.State),
		Method:                 string(status.Method),
		RemainingRecoveryCodes: status.RemainingRecoveryCodes,
		EnabledAt:              status.EnabledAt,
	})
}

// HandleBeginSetup godoc
//
//	@Summary		Begin two factor setup
//	@Description	Creates a pending enrollment. For totp the response carries the secret and otpauth URL; for email a code is sent.
//	@Description	Recovery codes are returned once and become usable after confirmation.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorSetupRequest	false	"Method, defaults to totp"
//	@Success		200		{object}	authsdk.TwoFactorSetupResponse	"Pending enrollment"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse			"two_factor_already_enabled"
//	@Router			/v1/2fa/setup [post].
func (h *TwoFactorHandler) HandleBeginSetup(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	var req authsdk.TwoFactorSetupRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
	}
	method := domain.TwoFactorMethod(req.Method)
	if method == "" {
		method = domain.MethodTOTP
	}
	if !method.Valid() {
		authsdk.ErrInvalidRequest.WithDescription("method must be totp or email").WriteError(w)
		return
	}

	setup, err := h.Orchestrator.BeginTwoFactorSetup(r.Context(), p, method)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorSetupResponse{
		Method:        string(setup.Method),
		Secret:        setup.Secret,
		URL:           setup.URL,
		Issuer:        setup.Issuer,
		Account:       setup.Account,
		RecoveryCodes: setup.RecoveryCodes,
		ExpiresAt:     setup.ExpiresAt,
	})
}

// HandleConfirmSetup godoc
//
//	@Summary		Confirm two factor setup
//	@Description	Enables the newest pending enrollment once a current code is presented.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.TwoFactorConfirmRequest	true	"Code from the authenticator app or email"
//	@Success		204		"Enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"two_factor_code_invalid"
//	@Failure		409		{object}	authsdk.ErrorResponse	"two_factor_setup_not_pending"
//	@Router			/v1/2fa/confirm [post].
func (h *TwoFactorHandler) HandleConfirmSetup(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	var req authsdk.TwoFactorConfirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Orchestrator.ConfirmTwoFactorSetup(r.Context(), p, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable godoc
//
//	@Summary		Disable two factor
//	@Description	Requires a current code or an unused recovery code.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.TwoFactorDisableRequest	true	"Proof"
//	@Success		204		"Disabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"two_factor_code_invalid"
//	@Failure		409		{object}	authsdk.ErrorResponse	"two_factor_not_enabled"
//	@Router			/v1/2fa/disable [post].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	var req authsdk.TwoFactorDisableRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	proof := domain.TwoFactorProof{Code: req.Code, RecoveryCode: req.RecoveryCode}
	if proof.Empty() {
		authsdk.ErrInvalidRequest.WithDescription("a code or recovery_code is required").WriteError(w)
		return
	}

	if err := h.Orchestrator.DisableTwoFactor(r.Context(), p, proof); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateRecoveryCodes godoc
//
//	@Summary		Regenerate recovery codes
//	@Description	Replaces every recovery code. Requires a current TOTP or emailed code; recovery codes are not accepted.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RecoveryCodesRequest	true	"Current code"
//	@Success		200		{object}	authsdk.RecoveryCodesResponse	"New recovery codes"
//	@Failure		401		{object}	authsdk.ErrorResponse			"two_factor_code_invalid"
//	@Failure		409		{object}	authsdk.ErrorResponse			"two_factor_not_enabled"
//	@Router			/v1/2fa/recovery-codes [post].
func (h *TwoFactorHandler) HandleRegenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	var req authsdk.RecoveryCodesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.Orchestrator.RegenerateRecoveryCodes(r.Context(), p, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RecoveryCodesResponse{RecoveryCodes: codes})
}

// HandleSendManagementCode godoc
//
//	@Summary		Email a management code
//	@Description	Sends a code for disabling two factor or regenerating recovery codes. Only the email method needs one.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Success		204	"Code sent"
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request for the totp method"
//	@Failure		409	{object}	authsdk.ErrorResponse	"two_factor_not_enabled"
//	@Failure		429	{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/2fa/email-code [post].
func (h *TwoFactorHandler) HandleSendManagementCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	if err := h.Orchestrator.SendTwoFactorCode(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListDevices godoc
//
//	@Summary		List trusted devices
//	@Description	Lists devices that skip the second factor, most recently used first.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TrustedDeviceListResponse	"Trusted devices"
//	@Failure		401	{object}	authsdk.ErrorResponse				"invalid token"
//	@Router			/v1/2fa/devices [get].
func (h *TwoFactorHandler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	devices, err := h.Orchestrator.ListTrustedDevices(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := authsdk.TrustedDeviceListResponse{Devices: make([]authsdk.TrustedDeviceInfo, 0, len(devices))}
	for _, d := range devices {
		out.Devices = append(out.Devices, authsdk.TrustedDeviceInfo{
			ID:         d.ID,
			IPAddress:  d.IPAddress,
			UserAgent:  d.UserAgent,
			CreatedAt:  d.CreatedAt,
			LastUsedAt: d.LastUsedAt,
			ExpiresAt:  d.ExpiresAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleForgetDevice godoc
//
//	@Summary		Forget a trusted device
//	@Description	The device is asked for the second factor on its next login.
//	@Tags			Two Factor
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Device ID"
//	@Success		204	"Forgotten"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/2fa/devices/{id} [delete].
func (h *TwoFactorHandler) HandleForgetDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	if err := h.Orchestrator.ForgetTrustedDevice(r.Context(), p, id.String()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
