package domain

import "time"

type TwoFactorMethod string

const (
	MethodTOTP  TwoFactorMethod = "totp"
	MethodEmail TwoFactorMethod = "email"
)

func (m TwoFactorMethod) Valid() bool { return m == MethodTOTP || m == MethodEmail }

// TwoFactorState is derived from enrollment rows: none means disabled.
type TwoFactorState string

const (
	TwoFactorDisabled TwoFactorState = "disabled"
	TwoFactorPending  TwoFactorState = "pending"
	TwoFactorEnabled  TwoFactorState = "enabled"
)

type TwoFactorEnrollment struct {
	ID         string
	IdentityID string
	Method     TwoFactorMethod
	Secret     string // base32 TOTP secret; empty for the email method
	State      TwoFactorState
	CreatedAt  time.Time
	ExpiresAt  *time.Time // pending only
	EnabledAt  *time.Time

	// LastUsedStep is the TOTP time step of the last accepted code. Codes
	// at or before it are replays.
	LastUsedStep int64
}

// PendingAt reports whether a pending enrollment can still be confirmed.
func (e *TwoFactorEnrollment) PendingAt(now time.Time) bool {
	return e.State == TwoFactorPending && e.ExpiresAt != nil && now.Before(*e.ExpiresAt)
}

type RecoveryCode struct {
	ID           string
	EnrollmentID string
	IdentityID   string
	CodeHash     string
	CreatedAt    time.Time
	ConsumedAt   *time.Time
}

// TwoFactorSetup is what beginSetup hands back to the caller. Secret and
// RecoveryCodes are shown exactly once.
type TwoFactorSetup struct {
	EnrollmentID  string
	Method        TwoFactorMethod
	Secret        string
	URL           string // otpauth:// provisioning URL
	Issuer        string
	Account       string
	RecoveryCodes []string
	ExpiresAt     time.Time
}

type TwoFactorStatus struct {
	State                  TwoFactorState
	Method                 TwoFactorMethod
	RemainingRecoveryCodes int
	EnabledAt              *time.Time
}

// TwoFactorProof is a second factor presented by the caller: a TOTP or
// emailed code, or a recovery code.
type TwoFactorProof struct {
	Code         string
	RecoveryCode string

	// RememberDevice asks for a trusted-device token alongside the session.
	RememberDevice bool
}

func (p TwoFactorProof) Empty() bool { return p.Code == "" && p.RecoveryCode == "" }
