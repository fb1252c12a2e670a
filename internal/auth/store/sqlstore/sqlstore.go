// Package sqlstore implements store.Store over database/sql. Queries are
// written once with ? placeholders; a Dialect adapts them to the driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string

	// Numbered rewrites ? placeholders to $1, $2, ...
	Numbered bool

	// LockClause is appended to row-locking selects (e.g. " FOR UPDATE").
	LockClause string

	// BindTime converts a time argument into the driver's storage form.
	BindTime func(time.Time) any

	IsUniqueViolation func(error) bool
}

func (d *Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *Dialect) args(args []any) []any {
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			args[i] = d.bindTime(v)
		case *time.Time:
			if v == nil {
				args[i] = nil
			} else {
				args[i] = d.bindTime(*v)
			}
		}
	}
	return args
}

func (d *Dialect) bindTime(t time.Time) any {
	if d.BindTime != nil {
		return d.BindTime(t)
	}
	return t.UTC()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn is what every repository runs its statements through.
type conn struct {
	q querier
	d *Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), c.d.args(args)...)
}

// execAffected runs an update and returns the number of rows it changed.
func (c conn) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), c.d.args(args)...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), c.d.args(args)...)
}

func (c conn) mapInsert(err error) error {
	if err != nil && c.d.IsUniqueViolation != nil && c.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

type Store struct {
	db      *sql.DB
	d       *Dialect
	migrate func(*sql.DB) error
}

var _ store.Store = (*Store)(nil)

// New wraps db. migrate is run by ApplyMigrations.
func New(db *sql.DB, d Dialect, migrate func(*sql.DB) error) *Store {
	return &Store{db: db, d: &d, migrate: migrate}
}

// DB exposes the pool for drivers and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ApplyMigrations() error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(s.db)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, c: conn{q: tx, d: s.d}}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) conn() conn { return conn{q: s.db, d: s.d} }

func (s *Store) Identities() store.Identities       { return &identitiesRepo{c: s.conn()} }
func (s *Store) Sessions() store.Sessions           { return &sessionsRepo{c: s.conn()} }
func (s *Store) TwoFactor() store.TwoFactor         { return &twoFactorRepo{c: s.conn()} }
func (s *Store) RecoveryCodes() store.RecoveryCodes { return &recoveryCodesRepo{c: s.conn()} }
func (s *Store) IssuedCodes() store.IssuedCodes     { return &issuedCodesRepo{c: s.conn()} }
func (s *Store) PendingLogins() store.PendingLogins { return &pendingLoginsRepo{c: s.conn()} }
func (s *Store) TrustedDevices() store.TrustedDevices {
	return &trustedDevicesRepo{c: s.conn()}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time.UTC()
		return &val
	}
	return nil
}
