package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// TwoFactorStatus reports the caller's second factor state.
func (s *Session) TwoFactorStatus(ctx context.Context) (*TwoFactorStatusResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/2fa", nil)
	if err != nil {
		return nil, err
	}
	var out TwoFactorStatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginTwoFactorSetup starts enrollment with method "totp" or "email".
// Recovery codes in the response are shown only once.
func (s *Session) BeginTwoFactorSetup(ctx context.Context, method string) (*TwoFactorSetupResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/2fa/setup", TwoFactorSetupRequest{Method: method})
	if err != nil {
		return nil, err
	}
	var out TwoFactorSetupResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmTwoFactorSetup enables the pending enrollment.
func (s *Session) ConfirmTwoFactorSetup(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/2fa/confirm", TwoFactorConfirmRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DisableTwoFactor removes the second factor. One of code or recoveryCode
// must be valid.
func (s *Session) DisableTwoFactor(ctx context.Context, code, recoveryCode string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/2fa/disable", TwoFactorDisableRequest{
		Code:         code,
		RecoveryCode: recoveryCode,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RegenerateRecoveryCodes replaces every recovery code. code must be a
// current TOTP or emailed code.
func (s *Session) RegenerateRecoveryCodes(ctx context.Context, code string) ([]string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/2fa/recovery-codes", RecoveryCodesRequest{Code: code})
	if err != nil {
		return nil, err
	}
	var out RecoveryCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.RecoveryCodes, nil
}

// SendTwoFactorCode emails a code for DisableTwoFactor or
// RegenerateRecoveryCodes. Only identities using the email method need one.
func (s *Session) SendTwoFactorCode(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/2fa/email-code", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ListTrustedDevices lists devices that currently skip the second factor.
func (s *Session) ListTrustedDevices(ctx context.Context) ([]TrustedDeviceInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/2fa/devices", nil)
	if err != nil {
		return nil, err
	}
	var out TrustedDeviceListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// ForgetTrustedDevice makes a device ask for the second factor again.
func (s *Session) ForgetTrustedDevice(ctx context.Context, deviceID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/2fa/devices/"+url.PathEscape(deviceID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
