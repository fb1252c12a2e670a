package domain

import "time"

// CodePurpose scopes an emailed one-time code to a single flow.
type CodePurpose string

const (
	PurposeLogin2FA  CodePurpose = "login_2fa"
	PurposeSetup2FA  CodePurpose = "setup_2fa"
	PurposeManage2FA CodePurpose = "manage_2fa" // signed-in changes to an email-method enrollment
)

func (p CodePurpose) Valid() bool {
	switch p {
	case PurposeLogin2FA, PurposeSetup2FA, PurposeManage2FA:
		return true
	}
	return false
}

// IssuedCode stores only the fingerprint of the code that was sent.
type IssuedCode struct {
	ID         string
	IdentityID string
	Purpose    CodePurpose
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Consumed   bool
}

// PendingLogin is the reference returned by login when a second factor is
// still owed. It can be exchanged for tokens once.
type PendingLogin struct {
	ID         string
	IdentityID string
	Method     TwoFactorMethod
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Consumed   bool
}
