package domain

import "time"

// TokenPair is what login, verifyTwoFactor and refresh return.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "Bearer"
	ExpiresIn    time.Duration
	SessionID    string

	// DeviceToken is set when the caller asked to remember the device.
	DeviceToken string
}

// LoginResult is either a token pair or, when a second factor is owed, a
// pending login reference.
type LoginResult struct {
	Tokens         *TokenPair
	PendingLoginID string
	Methods        []string
	Identity       *Identity
}

func (r *LoginResult) TwoFactorRequired() bool { return r.Tokens == nil && r.PendingLoginID != "" }
