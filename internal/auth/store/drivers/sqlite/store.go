// Package sqlite is the modernc SQLite driver for the credential store.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/store/sqlstore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02 15:04:05.000000000-07:00"

// Dialect is the SQLite flavour of the shared SQL store. Write transactions
// are opened with BEGIN IMMEDIATE (see DSN), so they are already serialised
// and need no row locks.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	BindTime:          func(t time.Time) any { return t.UTC().Format(timeLayout) },
	IsUniqueViolation: isUniqueViolation,
}

// DSN turns a database file path into a modernc DSN with the pragmas the
// store relies on.
func DSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// NewStore opens the database at path (or a full file: DSN).
func NewStore(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return sqlstore.New(db, Dialect, migrateUp), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
