package authsdk

import "time"

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the error body every endpoint returns.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine readable error code (e.g., "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Credential Types
// ============================================================================

// RegisterRequest creates a local identity.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse describes the identity just created.
type RegisterResponse struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// LoginRequest is the first login step.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// DeviceToken skips the second factor when it names a device the
	// identity trusts
	DeviceToken string `json:"device_token,omitempty"`
}

// TokenResponse is returned by login, two factor verification and refresh.
// Refresh responses carry no RefreshToken: the original one stays valid.
type TokenResponse struct {
	// AccessToken is the short lived JWT presented as a bearer token
	AccessToken string `json:"access_token"`

	// RefreshToken is the long lived JWT used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// SessionID identifies the device session the tokens belong to
	SessionID string `json:"session_id,omitempty"`

	// DeviceToken is returned once when a verification asked to remember
	// the device
	DeviceToken string `json:"device_token,omitempty"`
}

// TwoFactorVerifyRequest completes a login that owes a second factor.
// Exactly one of Code or RecoveryCode is expected.
type TwoFactorVerifyRequest struct {
	PendingLoginID string `json:"pending_login_id"`
	Code           string `json:"code,omitempty"`
	RecoveryCode   string `json:"recovery_code,omitempty"`
	RememberDevice bool   `json:"remember_device,omitempty"`
}

// SendLoginCodeRequest asks for a fresh emailed login code.
type SendLoginCodeRequest struct {
	PendingLoginID string `json:"pending_login_id"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest selects which sessions to end.
type LogoutRequest struct {
	// Scope is "this_device" (default) or "all_devices"
	Scope string `json:"scope,omitempty"`
}

const (
	LogoutThisDevice = "this_device"
	LogoutAllDevices = "all_devices"
)

// ============================================================================
// Two Factor Types
// ============================================================================

// TwoFactorStatusResponse describes the caller's second factor.
type TwoFactorStatusResponse struct {
	// State is "disabled", "pending" or "enabled"
	State                  string     `json:"state"`
	Method                 string     `json:"method,omitempty"`
	RemainingRecoveryCodes int        `json:"remaining_recovery_codes"`
	EnabledAt              *time.Time `json:"enabled_at,omitempty"`
}

// TwoFactorSetupRequest starts enrollment.
type TwoFactorSetupRequest struct {
	// Method is "totp" (default) or "email"
	Method string `json:"method,omitempty"`
}

// TwoFactorSetupResponse carries the material shown to the user exactly once.
type TwoFactorSetupResponse struct {
	Method        string    `json:"method"`
	Secret        string    `json:"secret,omitempty"`
	URL           string    `json:"otpauth_url,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	Account       string    `json:"account,omitempty"`
	RecoveryCodes []string  `json:"recovery_codes"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// TwoFactorConfirmRequest proves possession of the pending factor.
type TwoFactorConfirmRequest struct {
	Code string `json:"code"`
}

// TwoFactorDisableRequest carries the proof required to remove 2FA.
type TwoFactorDisableRequest struct {
	Code         string `json:"code,omitempty"`
	RecoveryCode string `json:"recovery_code,omitempty"`
}

// RecoveryCodesRequest carries a current primary code.
type RecoveryCodesRequest struct {
	Code string `json:"code"`
}

// RecoveryCodesResponse lists freshly generated recovery codes.
type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// TrustedDeviceInfo describes a device that may skip the second factor.
type TrustedDeviceInfo struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TrustedDeviceListResponse lists the caller's trusted devices, most
// recently used first.
type TrustedDeviceListResponse struct {
	Devices []TrustedDeviceInfo `json:"devices"`
}

// ============================================================================
// Session and Identity Types
// ============================================================================

// SessionInfo describes one live device session.
type SessionInfo struct {
	ID           string    `json:"id"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}

// SessionListResponse lists the caller's live sessions, oldest first.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// ExternalPasswordResponse carries the derived password of an external
// identity, used to sign in to downstream services.
type ExternalPasswordResponse struct {
	Password string `json:"password"`
}

// WhoAmIResponse describes the authenticated caller.
type WhoAmIResponse struct {
	IdentityID   string   `json:"identity_id"`
	SessionID    string   `json:"session_id"`
	Role         string   `json:"role"`
	AMR          []string `json:"amr,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AssignRoleRequest changes an identity's role.
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// LinkExternalRequest records that an email signed in with an external
// provider.
type LinkExternalRequest struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// LinkExternalResponse describes the linked identity.
type LinkExternalResponse struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Provider   string `json:"provider"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Cache indicates the shared cache status; "disabled" when none is configured
	Cache string `json:"cache,omitempty"`
}
