package http

import (
	"net/http"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
)

type IdentitiesHandler struct {
	Orchestrator *service.Orchestrator
	Identities   *service.IdentityService
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the caller's password and revokes every session of the identity.
//	@Tags			Identities
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204		"Changed"
//	@Failure		400		{object}	authsdk.ErrorResponse	"weak_password"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Router			/v1/identities/me/password [post].
func (h *IdentitiesHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.NewPassword == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Orchestrator.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExternalPassword godoc
//
//	@Summary		Derived password
//	@Description	Returns the password derived for an identity that signed in through an external provider.
//	@Tags			Identities
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ExternalPasswordResponse	"Derived password"
//	@Failure		403	{object}	authsdk.ErrorResponse				"local identity"
//	@Router			/v1/identities/me/external-password [get].
func (h *IdentitiesHandler) HandleExternalPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	password, err := h.Orchestrator.ExternalPassword(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ExternalPasswordResponse{Password: password})
}

// HandleAssignRole godoc
//
//	@Summary		Assign role
//	@Description	Changes an identity's role. Takes effect on the next authorization check.
//	@Tags			Identities
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string						true	"Identity ID"
//	@Param			request	body	authsdk.AssignRoleRequest	true	"New role"
//	@Success		204		"Assigned"
//	@Failure		400		{object}	authsdk.ErrorResponse	"unknown role"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404		{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/identities/{id}/role [put].
func (h *IdentitiesHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req authsdk.AssignRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	if err := h.Identities.AssignRole(r.Context(), id.String(), role); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLinkExternal godoc
//
//	@Summary		Link an external sign-in
//	@Description	Records that an email signed in through an external provider, creating a guest identity when the email is new.
//	@Description	Local identities with their own password are refused.
//	@Tags			Identities
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LinkExternalRequest		true	"Email and provider"
//	@Success		200		{object}	authsdk.LinkExternalResponse	"Linked"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		403		{object}	authsdk.ErrorResponse			"forbidden"
//	@Failure		409		{object}	authsdk.ErrorResponse			"email_taken"
//	@Router			/v1/identities/external [post].
func (h *IdentitiesHandler) HandleLinkExternal(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LinkExternalRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	identity, err := h.Identities.LinkExternal(r.Context(), req.Email, req.Provider)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LinkExternalResponse{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Role:       string(identity.Role),
		Provider:   identity.ExternalProvider,
	})
}

// HandleDelete godoc
//
//	@Summary		Delete identity
//	@Description	Soft-deletes an identity, revokes its sessions and forgets its trusted devices. Callers cannot delete themselves.
//	@Tags			Identities
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Identity ID"
//	@Success		204	"Deleted"
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/identities/{id} [delete].
func (h *IdentitiesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
	if id.String() == p.IdentityID {
		authsdk.ErrInvalidRequest.WithDescription("cannot delete the calling identity").WriteError(w)
		return
	}

	if err := h.Identities.Delete(r.Context(), id.String()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
