package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the Zenith authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent with every request and shows up in the session list.
	UserAgent string

	// DeviceToken is sent with every login. Set it from Session.DeviceToken
	// after a verification that remembered the device.
	DeviceToken string
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "zenith-authsdk",
	}
}

// Register creates a local identity. It does not sign in.
func (c *SDKClient) Register(ctx context.Context, email, password string) (*RegisterResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in with email and password. When the identity has a second
// factor enabled the returned error is a *TwoFactorRequiredError; pass its
// PendingLoginID to VerifyTwoFactor.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Email:       email,
		Password:    password,
		DeviceToken: c.DeviceToken,
	})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &tokens), nil
}

// VerifyTwoFactor completes a login with a TOTP or emailed code, or with a
// recovery code when code is empty.
func (c *SDKClient) VerifyTwoFactor(ctx context.Context, pendingLoginID, code, recoveryCode string) (*Session, error) {
	return c.verifyTwoFactor(ctx, TwoFactorVerifyRequest{
		PendingLoginID: pendingLoginID,
		Code:           code,
		RecoveryCode:   recoveryCode,
	})
}

// VerifyTwoFactorRememberDevice is VerifyTwoFactor that also asks the
// service to trust this device. The returned session's DeviceToken skips
// the second factor on later logins until it expires.
func (c *SDKClient) VerifyTwoFactorRememberDevice(ctx context.Context, pendingLoginID, code, recoveryCode string) (*Session, error) {
	return c.verifyTwoFactor(ctx, TwoFactorVerifyRequest{
		PendingLoginID: pendingLoginID,
		Code:           code,
		RecoveryCode:   recoveryCode,
		RememberDevice: true,
	})
}

func (c *SDKClient) verifyTwoFactor(ctx context.Context, req TwoFactorVerifyRequest) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/verify", "", req)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &tokens), nil
}

// SendLoginCode emails a fresh code for a pending login whose second factor
// is the email method.
func (c *SDKClient) SendLoginCode(ctx context.Context, pendingLoginID string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/email", "", SendLoginCodeRequest{PendingLoginID: pendingLoginID})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// AuthenticateWithRefreshToken creates a session from a stored refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokens, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	tokens.RefreshToken = refreshToken
	return newSession(c, tokens), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session will still refresh the access token when it expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
