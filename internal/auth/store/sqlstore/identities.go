package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
)

type identitiesRepo struct{ c conn }

const identityColumns = `id, email, password_hash, role, external_auth_provider, email_verified, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domain.Identity, error) {
	var (
		i        domain.Identity
		hash     sql.NullString
		role     string
		provider sql.NullString
		deleted  sql.NullTime
	)
	if err := row.Scan(&i.ID, &i.Email, &hash, &role, &provider, &i.EmailVerified, &i.CreatedAt, &i.UpdatedAt, &deleted); err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.PasswordHash = mapNullString(hash)
	i.Role = domain.Role(role)
	i.ExternalProvider = mapNullString(provider)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	i.DeletedAt = mapNullTimePtr(deleted)
	return i, nil
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO identities (id, email, password_hash, role, external_auth_provider, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, domain.NormalizeEmail(i.Email), mapStringNull(i.PasswordHash), string(i.Role),
		mapStringNull(i.ExternalProvider), i.EmailVerified, i.CreatedAt, i.UpdatedAt,
	)
	return r.c.mapInsert(err)
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	return scanIdentity(r.c.queryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ? AND deleted_at IS NULL`, id))
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	return scanIdentity(r.c.queryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ? AND deleted_at IS NULL`,
		domain.NormalizeEmail(email)))
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	return r.updateOne(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		hash, now, id)
}

func (r *identitiesRepo) UpdateRole(ctx context.Context, id string, role domain.Role, now time.Time) error {
	return r.updateOne(ctx,
		`UPDATE identities SET role = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		string(role), now, id)
}

func (r *identitiesRepo) LinkExternal(ctx context.Context, id, provider, hash string, now time.Time) error {
	return r.updateOne(ctx,
		`UPDATE identities SET external_auth_provider = ?, password_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		provider, hash, now, id)
}

func (r *identitiesRepo) SoftDelete(ctx context.Context, id string, now time.Time) error {
	return r.updateOne(ctx,
		`UPDATE identities SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
}

func (r *identitiesRepo) Lock(ctx context.Context, id string) error {
	var got string
	err := r.c.queryRow(ctx,
		`SELECT id FROM identities WHERE id = ? AND deleted_at IS NULL`+r.c.d.LockClause, id).Scan(&got)
	return mapNotFound(err)
}

func (r *identitiesRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM identities WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

func (r *identitiesRepo) updateOne(ctx context.Context, query string, args ...any) error {
	n, err := r.c.execAffected(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
