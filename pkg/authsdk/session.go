package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// expiryBuffer refreshes access tokens slightly before they expire.
const expiryBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	sessionID    string
	deviceToken  string
	expiresAt    time.Time
}

func newSession(client *SDKClient, tokens *TokenResponse) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		sessionID:    tokens.SessionID,
		deviceToken:  tokens.DeviceToken,
		expiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - expiryBuffer),
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.accessToken = tokens.AccessToken
	if tokens.SessionID != "" {
		s.sessionID = tokens.SessionID
	}
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - expiryBuffer)
	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the refresh token the session was created with.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SessionID returns the server side session id, when known.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// DeviceToken returns the trusted-device token issued at login, if one was
// asked for.
func (s *Session) DeviceToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceToken
}

// Logout ends this device's session, or every session of the identity when
// scope is LogoutAllDevices.
func (s *Session) Logout(ctx context.Context, scope string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{Scope: scope})
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// WhoAmI describes the authenticated caller.
func (s *Session) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/whoami", nil)
	if err != nil {
		return nil, err
	}
	var out WhoAmIResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword replaces the caller's password. Every session, this one
// included, is revoked.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/identities/me/password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ListSessions lists the caller's live sessions.
func (s *Session) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/sessions", nil)
	if err != nil {
		return nil, err
	}
	var out SessionListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// RevokeSession ends one of the caller's sessions.
func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ExternalPassword returns the derived password of an external identity.
func (s *Session) ExternalPassword(ctx context.Context) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/identities/me/external-password", nil)
	if err != nil {
		return "", err
	}
	var out ExternalPasswordResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.Password, nil
}

// AssignRole changes another identity's role. Requires roles:assign.
func (s *Session) AssignRole(ctx context.Context, identityID, role string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/identities/"+url.PathEscape(identityID)+"/role", AssignRoleRequest{Role: role})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// LinkExternal records that email signed in with an external provider,
// creating a guest identity if needed. Requires users:manage. Emails of
// local identities with a password are refused with ErrEmailTaken.
func (s *Session) LinkExternal(ctx context.Context, email, provider string) (*LinkExternalResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/identities/external", LinkExternalRequest{Email: email, Provider: provider})
	if err != nil {
		return nil, err
	}
	var out LinkExternalResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIdentity removes another identity and ends its sessions. Requires
// users:manage.
func (s *Session) DeleteIdentity(ctx context.Context, identityID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/identities/"+url.PathEscape(identityID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
