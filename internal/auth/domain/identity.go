package domain

import (
	"strings"
	"time"
)

type Identity struct {
	ID               string
	Email            string // lower-cased, unique
	PasswordHash     string // bcrypt; empty when the identity cannot log in with a password
	Role             Role
	ExternalProvider string // e.g. "google"; empty for local identities
	EmailVerified    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

func (i *Identity) Deleted() bool { return i.DeletedAt != nil }

func (i *Identity) IsExternal() bool { return i.ExternalProvider != "" }

// NormalizeEmail is the canonical form used for storage, lookups and rate
// limit keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
