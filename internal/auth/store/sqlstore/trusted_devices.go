package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

type trustedDevicesRepo struct{ c conn }

const trustedDeviceColumns = `id, identity_id, token_fingerprint, ip_address, user_agent, created_at, last_used_at, expires_at`

func scanTrustedDevice(row rowScanner) (domain.TrustedDevice, error) {
	var (
		d      domain.TrustedDevice
		ip, ua sql.NullString
	)
	if err := row.Scan(&d.ID, &d.IdentityID, &d.TokenFingerprint, &ip, &ua,
		&d.CreatedAt, &d.LastUsedAt, &d.ExpiresAt); err != nil {
		return domain.TrustedDevice{}, mapNotFound(err)
	}
	d.IPAddress = mapNullString(ip)
	d.UserAgent = mapNullString(ua)
	d.CreatedAt = d.CreatedAt.UTC()
	d.LastUsedAt = d.LastUsedAt.UTC()
	d.ExpiresAt = d.ExpiresAt.UTC()
	return d, nil
}

func (r *trustedDevicesRepo) Create(ctx context.Context, d domain.TrustedDevice) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO trusted_devices (id, identity_id, token_fingerprint, ip_address, user_agent, created_at, last_used_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.IdentityID, d.TokenFingerprint, mapStringNull(d.IPAddress), mapStringNull(d.UserAgent),
		d.CreatedAt, d.LastUsedAt, d.ExpiresAt,
	)
	return r.c.mapInsert(err)
}

func (r *trustedDevicesRepo) Use(ctx context.Context, identityID, fingerprint string, now time.Time) (bool, error) {
	n, err := r.c.execAffected(ctx, `
		UPDATE trusted_devices SET last_used_at = ?
		WHERE identity_id = ? AND token_fingerprint = ? AND expires_at > ?`,
		now, identityID, fingerprint, now)
	return n == 1, err
}

func (r *trustedDevicesRepo) ListLive(ctx context.Context, identityID string, now time.Time) ([]domain.TrustedDevice, error) {
	rows, err := r.c.query(ctx, `
		SELECT `+trustedDeviceColumns+` FROM trusted_devices
		WHERE identity_id = ? AND expires_at > ?
		ORDER BY last_used_at DESC, id ASC`,
		identityID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrustedDevice
	for rows.Next() {
		d, err := scanTrustedDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *trustedDevicesRepo) Delete(ctx context.Context, identityID, id string) (bool, error) {
	n, err := r.c.execAffected(ctx,
		`DELETE FROM trusted_devices WHERE id = ? AND identity_id = ?`, id, identityID)
	return n == 1, err
}

func (r *trustedDevicesRepo) DeleteForIdentity(ctx context.Context, identityID string) (int64, error) {
	return r.c.execAffected(ctx, `DELETE FROM trusted_devices WHERE identity_id = ?`, identityID)
}

func (r *trustedDevicesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.execAffected(ctx, `DELETE FROM trusted_devices WHERE expires_at <= ?`, now)
}
