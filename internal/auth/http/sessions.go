package http

import (
	"net/http"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/authsdk"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
)

// SessionsHandler lists and ends the caller's device sessions.
type SessionsHandler struct {
	Orchestrator *service.Orchestrator
}

// HandleList godoc
//
//	@Summary		List sessions
//	@Description	Lists the caller's live sessions, oldest first. The session making the request is marked current.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionListResponse	"Live sessions"
//	@Failure		401	{object}	authsdk.ErrorResponse		"invalid token"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		authsdk.ErrTokenMalformed.WriteError(w)
		return
	}

	sessions, err := h.Orchestrator.ListSessions(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := authsdk.SessionListResponse{Sessions: make([]authsdk.SessionInfo, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, authsdk.SessionInfo{
			ID:           s.ID,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			CreatedAt:    s.CreatedAt,
			LastActiveAt: s.LastActiveAt,
			ExpiresAt:    s.ExpiresAt,
			Current:      s.ID == p.SessionID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke godoc
//
//	@Summary		Revoke a session
//	@Description	Ends one of the caller's sessions, typically another device.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Orchestrator.RevokeSession(r.Context(), p, id.String()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
