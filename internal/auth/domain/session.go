package domain

import "time"

// Session is one logged-in device. It is live while it is not revoked and
// has not expired.
type Session struct {
	ID                      string
	IdentityID              string
	RefreshTokenFingerprint string // base64url SHA-256 of the refresh token
	IPAddress               string
	UserAgent               string
	CreatedAt               time.Time
	LastActiveAt            time.Time
	ExpiresAt               time.Time
	Revoked                 bool
	RevokedAt               *time.Time
}

func (s *Session) LiveAt(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// ClientMeta describes the device a session was created or refreshed from.
type ClientMeta struct {
	IPAddress string
	UserAgent string

	// DeviceToken is a trusted-device token presented at login, if any.
	DeviceToken string
}

// LogoutScope selects which sessions a logout revokes.
type LogoutScope string

const (
	LogoutThisDevice LogoutScope = "this_device"
	LogoutAllDevices LogoutScope = "all_devices"
)

func (s LogoutScope) Valid() bool {
	return s == LogoutThisDevice || s == LogoutAllDevices
}
