package domain

import "time"

// TrustedDevice lets logins from one device skip the second factor until it
// expires. Only the fingerprint of the device token is stored.
type TrustedDevice struct {
	ID               string
	IdentityID       string
	TokenFingerprint string
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastUsedAt       time.Time
	ExpiresAt        time.Time
}
