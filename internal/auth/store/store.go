package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and only the root Store can open a transaction so nested
// transactions cannot be started by accident.
//
// Every method that compares against the clock takes the reference time as
// an argument so callers decide what "now" is.
type Store interface {
	Identities() Identities
	Sessions() Sessions
	TwoFactor() TwoFactor
	RecoveryCodes() RecoveryCodes
	IssuedCodes() IssuedCodes
	PendingLogins() PendingLogins
	TrustedDevices() TrustedDevices

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// Create inserts a new identity. A live identity with the same email
	// yields ErrAlreadyExists.
	Create(ctx context.Context, i domain.Identity) error

	// GetByID and GetByEmail ignore soft-deleted identities.
	GetByID(ctx context.Context, id string) (domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)

	UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error
	UpdateRole(ctx context.Context, id string, role domain.Role, now time.Time) error
	LinkExternal(ctx context.Context, id, provider, hash string, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error

	// Lock takes a row lock on the identity for the rest of the transaction.
	// Drivers whose transactions are already serialised treat it as an
	// existence check.
	Lock(ctx context.Context, id string) error

	Count(ctx context.Context) (int, error)
}

type Sessions interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)

	// ListLive returns the identity's live sessions oldest first.
	ListLive(ctx context.Context, identityID string, now time.Time) ([]domain.Session, error)

	// IsLive reports whether the session exists, is not revoked and has not
	// expired at now.
	IsLive(ctx context.Context, id string, now time.Time) (bool, error)

	// Touch bumps last_active_at (and client metadata when given) on a live
	// session. It never changes expires_at.
	Touch(ctx context.Context, id string, meta domain.ClientMeta, now time.Time) error

	// Revoke flips revoked once; it reports whether this call did the flip.
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)

	RevokeAllForIdentity(ctx context.Context, identityID string, now time.Time) (int64, error)

	// RevokeExpired revokes every unrevoked session whose expiry has passed.
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

type TwoFactor interface {
	CreatePending(ctx context.Context, e domain.TwoFactorEnrollment) error

	// DeletePending removes every pending enrollment of the identity except
	// keepID, along with their recovery codes.
	DeletePending(ctx context.Context, identityID, keepID string) error

	GetEnabled(ctx context.Context, identityID string) (domain.TwoFactorEnrollment, error)

	// GetLatestPending returns the newest pending enrollment that has not
	// expired at now.
	GetLatestPending(ctx context.Context, identityID string, now time.Time) (domain.TwoFactorEnrollment, error)

	// Promote flips a pending, unexpired enrollment to enabled. It returns
	// ErrNotFound when the enrollment was not pending or has expired.
	Promote(ctx context.Context, id string, now time.Time) error

	// AdvanceStep records step as the last accepted TOTP step when it is
	// newer than the stored one. It reports whether this call moved it, so
	// of two verifications of the same code only one succeeds.
	AdvanceStep(ctx context.Context, id string, step int64) (bool, error)

	// DeleteForIdentity removes every enrollment and recovery code of the
	// identity.
	DeleteForIdentity(ctx context.Context, identityID string) error

	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

type RecoveryCodes interface {
	Create(ctx context.Context, codes []domain.RecoveryCode) error

	// Consume marks the unconsumed code with hash as used. It reports
	// whether this call consumed it.
	Consume(ctx context.Context, enrollmentID, codeHash string, now time.Time) (bool, error)

	CountUnused(ctx context.Context, enrollmentID string) (int, error)
	DeleteForEnrollment(ctx context.Context, enrollmentID string) error
}

type IssuedCodes interface {
	Create(ctx context.Context, c domain.IssuedCode) error

	// Consume flips consumed on the matching unexpired code in one
	// conditional update and reports whether this call did the flip.
	Consume(ctx context.Context, identityID string, purpose domain.CodePurpose, codeHash string, now time.Time) (bool, error)

	// Find returns the code with the given hash regardless of state.
	Find(ctx context.Context, identityID string, purpose domain.CodePurpose, codeHash string) (domain.IssuedCode, error)

	// InvalidateOutstanding consumes every unconsumed code for the purpose.
	InvalidateOutstanding(ctx context.Context, identityID string, purpose domain.CodePurpose) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PendingLogins interface {
	Create(ctx context.Context, p domain.PendingLogin) error

	// Get returns the pending login when it is unconsumed and unexpired.
	Get(ctx context.Context, id string, now time.Time) (domain.PendingLogin, error)

	// IncrementAttempts bumps the failure counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Consume marks the pending login used; it reports whether this call did.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TrustedDevices interface {
	Create(ctx context.Context, d domain.TrustedDevice) error

	// Use bumps last_used_at on the identity's unexpired device with the
	// fingerprint and reports whether one matched.
	Use(ctx context.Context, identityID, fingerprint string, now time.Time) (bool, error)

	// ListLive returns the identity's unexpired devices, most recently used
	// first.
	ListLive(ctx context.Context, identityID string, now time.Time) ([]domain.TrustedDevice, error)

	// Delete removes one of the identity's devices and reports whether it
	// existed.
	Delete(ctx context.Context, identityID, id string) (bool, error)

	DeleteForIdentity(ctx context.Context, identityID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
