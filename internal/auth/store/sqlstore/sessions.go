package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

type sessionsRepo struct{ c conn }

const sessionColumns = `id, identity_id, refresh_token_fingerprint, ip_address, user_agent, created_at, last_active_at, expires_at, revoked, revoked_at`

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s         domain.Session
		ip, ua    sql.NullString
		revokedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.IdentityID, &s.RefreshTokenFingerprint, &ip, &ua,
		&s.CreatedAt, &s.LastActiveAt, &s.ExpiresAt, &s.Revoked, &revokedAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.IPAddress = mapNullString(ip)
	s.UserAgent = mapNullString(ua)
	s.CreatedAt = s.CreatedAt.UTC()
	s.LastActiveAt = s.LastActiveAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}

func (r *sessionsRepo) Create(ctx context.Context, s domain.Session) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO sessions (id, identity_id, refresh_token_fingerprint, ip_address, user_agent, created_at, last_active_at, expires_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.IdentityID, s.RefreshTokenFingerprint, mapStringNull(s.IPAddress), mapStringNull(s.UserAgent),
		s.CreatedAt, s.LastActiveAt, s.ExpiresAt, false,
	)
	return r.c.mapInsert(err)
}

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.c.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) ListLive(ctx context.Context, identityID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.c.query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE identity_id = ? AND revoked = ? AND expires_at > ?
		ORDER BY created_at ASC, id ASC`,
		identityID, false, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) IsLive(ctx context.Context, id string, now time.Time) (bool, error) {
	var n int
	err := r.c.queryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ? AND revoked = ? AND expires_at > ?`,
		id, false, now).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionsRepo) Touch(ctx context.Context, id string, meta domain.ClientMeta, now time.Time) error {
	_, err := r.c.exec(ctx, `
		UPDATE sessions
		SET last_active_at = ?,
		    ip_address = COALESCE(?, ip_address),
		    user_agent = COALESCE(?, user_agent)
		WHERE id = ? AND revoked = ? AND expires_at > ?`,
		now, mapStringNull(meta.IPAddress), mapStringNull(meta.UserAgent), id, false, now)
	return err
}

func (r *sessionsRepo) Revoke(ctx context.Context, id string, now time.Time) (bool, error) {
	n, err := r.c.execAffected(ctx,
		`UPDATE sessions SET revoked = ?, revoked_at = ? WHERE id = ? AND revoked = ?`,
		true, now, id, false)
	return n == 1, err
}

func (r *sessionsRepo) RevokeAllForIdentity(ctx context.Context, identityID string, now time.Time) (int64, error) {
	return r.c.execAffected(ctx,
		`UPDATE sessions SET revoked = ?, revoked_at = ? WHERE identity_id = ? AND revoked = ?`,
		true, now, identityID, false)
}

func (r *sessionsRepo) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.execAffected(ctx,
		`UPDATE sessions SET revoked = ?, revoked_at = ? WHERE revoked = ? AND expires_at <= ?`,
		true, now, false, now)
}
