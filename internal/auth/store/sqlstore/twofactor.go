package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
)

type twoFactorRepo struct{ c conn }

const enrollmentColumns = `id, identity_id, method, secret, state, created_at, expires_at, enabled_at, last_used_step`

func scanEnrollment(row rowScanner) (domain.TwoFactorEnrollment, error) {
	var (
		e                  domain.TwoFactorEnrollment
		method, state      string
		expires, enabledAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.IdentityID, &method, &e.Secret, &state, &e.CreatedAt, &expires, &enabledAt, &e.LastUsedStep); err != nil {
		return domain.TwoFactorEnrollment{}, mapNotFound(err)
	}
	e.Method = domain.TwoFactorMethod(method)
	e.State = domain.TwoFactorState(state)
	e.CreatedAt = e.CreatedAt.UTC()
	e.ExpiresAt = mapNullTimePtr(expires)
	e.EnabledAt = mapNullTimePtr(enabledAt)
	return e, nil
}

func (r *twoFactorRepo) CreatePending(ctx context.Context, e domain.TwoFactorEnrollment) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO two_factor_enrollments (id, identity_id, method, secret, state, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.IdentityID, string(e.Method), e.Secret, string(domain.TwoFactorPending), e.CreatedAt, e.ExpiresAt)
	return r.c.mapInsert(err)
}

func (r *twoFactorRepo) DeletePending(ctx context.Context, identityID, keepID string) error {
	_, err := r.c.exec(ctx, `
		DELETE FROM recovery_codes WHERE enrollment_id IN (
			SELECT id FROM two_factor_enrollments WHERE identity_id = ? AND state = ? AND id <> ?
		)`, identityID, string(domain.TwoFactorPending), keepID)
	if err != nil {
		return err
	}
	_, err = r.c.exec(ctx,
		`DELETE FROM two_factor_enrollments WHERE identity_id = ? AND state = ? AND id <> ?`,
		identityID, string(domain.TwoFactorPending), keepID)
	return err
}

func (r *twoFactorRepo) GetEnabled(ctx context.Context, identityID string) (domain.TwoFactorEnrollment, error) {
	return scanEnrollment(r.c.queryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM two_factor_enrollments WHERE identity_id = ? AND state = ?`,
		identityID, string(domain.TwoFactorEnabled)))
}

func (r *twoFactorRepo) GetLatestPending(ctx context.Context, identityID string, now time.Time) (domain.TwoFactorEnrollment, error) {
	return scanEnrollment(r.c.queryRow(ctx, `
		SELECT `+enrollmentColumns+` FROM two_factor_enrollments
		WHERE identity_id = ? AND state = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		identityID, string(domain.TwoFactorPending), now))
}

func (r *twoFactorRepo) Promote(ctx context.Context, id string, now time.Time) error {
	n, err := r.c.execAffected(ctx, `
		UPDATE two_factor_enrollments
		SET state = ?, enabled_at = ?, expires_at = NULL
		WHERE id = ? AND state = ? AND expires_at > ?`,
		string(domain.TwoFactorEnabled), now, id, string(domain.TwoFactorPending), now)
	if err != nil {
		return r.c.mapInsert(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *twoFactorRepo) AdvanceStep(ctx context.Context, id string, step int64) (bool, error) {
	n, err := r.c.execAffected(ctx,
		`UPDATE two_factor_enrollments SET last_used_step = ? WHERE id = ? AND last_used_step < ?`,
		step, id, step)
	return n > 0, err
}

func (r *twoFactorRepo) DeleteForIdentity(ctx context.Context, identityID string) error {
	if _, err := r.c.exec(ctx, `DELETE FROM recovery_codes WHERE identity_id = ?`, identityID); err != nil {
		return err
	}
	_, err := r.c.exec(ctx, `DELETE FROM two_factor_enrollments WHERE identity_id = ?`, identityID)
	return err
}

func (r *twoFactorRepo) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	if _, err := r.c.exec(ctx, `
		DELETE FROM recovery_codes WHERE enrollment_id IN (
			SELECT id FROM two_factor_enrollments WHERE state = ? AND expires_at <= ?
		)`, string(domain.TwoFactorPending), now); err != nil {
		return 0, err
	}
	return r.c.execAffected(ctx,
		`DELETE FROM two_factor_enrollments WHERE state = ? AND expires_at <= ?`,
		string(domain.TwoFactorPending), now)
}
