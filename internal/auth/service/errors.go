package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Stable reasons surfaced to callers. The HTTP layer maps each one to a
// status code and error string.
var (
	ErrInvalidCredentials       = errors.New("invalid_credentials")
	ErrTokenExpired             = errors.New("token_expired")
	ErrTokenMalformed           = errors.New("token_malformed")
	ErrTokenSignatureInvalid    = errors.New("token_signature_invalid")
	ErrTokenWrongType           = errors.New("token_wrong_type")
	ErrSessionRevoked           = errors.New("session_revoked")
	ErrTwoFactorCodeInvalid     = errors.New("two_factor_code_invalid")
	ErrTwoFactorSetupNotPending = errors.New("two_factor_setup_not_pending")
	ErrTwoFactorAlreadyEnabled  = errors.New("two_factor_already_enabled")
	ErrTwoFactorNotEnabled      = errors.New("two_factor_not_enabled")
	ErrCodeAlreadyConsumed      = errors.New("code_already_consumed")
	ErrCodeDeliveryFailed       = errors.New("code_delivery_failed")
	ErrPendingLoginExpired      = errors.New("pending_login_expired")
	ErrRateLimited              = errors.New("rate_limited")
	ErrStoreUnavailable         = errors.New("store_unavailable")
	ErrForbidden                = errors.New("forbidden")
	ErrWeakPassword             = errors.New("weak_password")
	ErrEmailTaken               = errors.New("email_taken")
	ErrIdentityNotFound         = errors.New("identity_not_found")
	ErrSessionNotFound          = errors.New("session_not_found")
	ErrTrustedDeviceNotFound    = errors.New("trusted_device_not_found")
	ErrInvalidRequest           = errors.New("invalid_request")
)

// RateLimitError is returned when a limiter denies a request. It matches
// ErrRateLimited with errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// storeErr wraps a failed store call. Callers have already handled
// store.ErrNotFound.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// withTimeout bounds a store call. A non-positive d leaves ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func nowFrom(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
