package sqlstore

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
	c  conn
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the pool stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op; the connection is already established.
func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Identities() store.Identities       { return &identitiesRepo{c: t.c} }
func (t *txStore) Sessions() store.Sessions           { return &sessionsRepo{c: t.c} }
func (t *txStore) TwoFactor() store.TwoFactor         { return &twoFactorRepo{c: t.c} }
func (t *txStore) RecoveryCodes() store.RecoveryCodes { return &recoveryCodesRepo{c: t.c} }
func (t *txStore) IssuedCodes() store.IssuedCodes     { return &issuedCodesRepo{c: t.c} }
func (t *txStore) PendingLogins() store.PendingLogins { return &pendingLoginsRepo{c: t.c} }
func (t *txStore) TrustedDevices() store.TrustedDevices {
	return &trustedDevicesRepo{c: t.c}
}
