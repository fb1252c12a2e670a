package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest           = "invalid_request"
	ErrorCodeInvalidCredentials       = "invalid_credentials"
	ErrorCodeTokenExpired             = "token_expired"
	ErrorCodeTokenMalformed           = "token_malformed"
	ErrorCodeTokenSignatureInvalid    = "token_signature_invalid"
	ErrorCodeTokenWrongType           = "token_wrong_type"
	ErrorCodeSessionRevoked           = "session_revoked"
	ErrorCodeTwoFactorRequired        = "two_factor_required"
	ErrorCodeTwoFactorCodeInvalid     = "two_factor_code_invalid"
	ErrorCodeTwoFactorSetupNotPending = "two_factor_setup_not_pending"
	ErrorCodeTwoFactorAlreadyEnabled  = "two_factor_already_enabled"
	ErrorCodeTwoFactorNotEnabled      = "two_factor_not_enabled"
	ErrorCodeCodeAlreadyConsumed      = "code_already_consumed"
	ErrorCodeCodeDeliveryFailed       = "code_delivery_failed"
	ErrorCodePendingLoginExpired      = "pending_login_expired"
	ErrorCodeRateLimited              = "rate_limited"
	ErrorCodeStoreUnavailable         = "store_unavailable"
	ErrorCodeForbidden                = "forbidden"
	ErrorCodeWeakPassword             = "weak_password"
	ErrorCodeEmailTaken               = "email_taken"
	ErrorCodeNotFound                 = "not_found"
	ErrorCodeServerError              = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error body every endpoint returns. It implements the error
// interface and is used both by the server (to write HTTP responses) and by
// the SDK client (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`

	// RetryAfter is set on rate limited responses
	RetryAfter time.Duration `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another APIError by code, so callers can write
// errors.Is(err, authsdk.ErrSessionRevoked).
func (e *APIError) Is(target error) bool {
	var other *APIError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((e.RetryAfter+time.Second-1)/time.Second)))
	}
	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+e.Code+`"`)
	}
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// WithDescription returns a copy of e carrying a different description.
func (e *APIError) WithDescription(description string) *APIError {
	c := *e
	c.Description = description
	return &c
}

// WithRetryAfter returns a copy of e carrying a Retry-After hint.
func (e *APIError) WithRetryAfter(d time.Duration) *APIError {
	c := *e
	c.RetryAfter = d
	return &c
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "the token has expired",
	}

	ErrTokenMalformed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenMalformed,
		Description: "the token is missing or malformed",
	}

	ErrTokenSignatureInvalid = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenSignatureInvalid,
		Description: "the token signature is invalid",
	}

	ErrTokenWrongType = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenWrongType,
		Description: "the token is not valid for this use",
	}

	ErrSessionRevoked = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionRevoked,
		Description: "the session has been revoked or has expired",
	}

	ErrTwoFactorCodeInvalid = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTwoFactorCodeInvalid,
		Description: "the second factor code is invalid",
	}

	ErrCodeAlreadyConsumed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeCodeAlreadyConsumed,
		Description: "the code has already been used",
	}

	ErrPendingLoginExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodePendingLoginExpired,
		Description: "the login attempt has expired; sign in again",
	}

	ErrTwoFactorSetupNotPending = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTwoFactorSetupNotPending,
		Description: "there is no pending two factor setup",
	}

	ErrTwoFactorAlreadyEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTwoFactorAlreadyEnabled,
		Description: "two factor authentication is already enabled",
	}

	ErrTwoFactorNotEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTwoFactorNotEnabled,
		Description: "two factor authentication is not enabled",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "an identity with this email already exists",
	}

	ErrWeakPassword = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeWeakPassword,
		Description: "the password does not meet the password policy",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "the caller lacks the required capability",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests",
	}

	ErrCodeDeliveryFailed = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeCodeDeliveryFailed,
		Description: "the code could not be delivered",
	}

	ErrStoreUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeStoreUnavailable,
		Description: "the service is temporarily unavailable",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// ============================================================================
// Two Factor Challenge
// ============================================================================

// TwoFactorRequiredError is returned by login when the identity has a second
// factor enabled. It's sent with HTTP 409 Conflict because the credentials
// were accepted but the login cannot complete without another step.
type TwoFactorRequiredError struct {
	// PendingLoginID is passed back to /v1/auth/2fa/verify
	PendingLoginID string `json:"pending_login_id"`

	// Methods lists the accepted proofs (e.g., ["totp", "recovery"])
	Methods []string `json:"methods"`
}

// Error implements the error interface.
func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("two factor required: available methods=%v", e.Methods)
}

// WriteError writes the challenge as a 409 Conflict.
func (e *TwoFactorRequiredError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusConflict, map[string]any{
		"error":             ErrorCodeTwoFactorRequired,
		"error_description": "a second factor is required to complete this login",
		"pending_login_id":  e.PendingLoginID,
		"methods":           e.Methods,
	})
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse attempts to parse an HTTP error response into a typed error.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusConflict {
		var challenge struct {
			Error          string   `json:"error"`
			PendingLoginID string   `json:"pending_login_id"`
			Methods        []string `json:"methods"`
		}
		if err := json.Unmarshal(body, &challenge); err == nil &&
			challenge.Error == ErrorCodeTwoFactorRequired && challenge.PendingLoginID != "" {
			return &TwoFactorRequiredError{
				PendingLoginID: challenge.PendingLoginID,
				Methods:        challenge.Methods,
			}
		}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr := &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
