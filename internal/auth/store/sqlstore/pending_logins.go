package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

type pendingLoginsRepo struct{ c conn }

func (r *pendingLoginsRepo) Create(ctx context.Context, p domain.PendingLogin) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO pending_logins (id, identity_id, method, attempts, created_at, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.IdentityID, string(p.Method), p.Attempts, p.CreatedAt, p.ExpiresAt, false)
	return r.c.mapInsert(err)
}

func (r *pendingLoginsRepo) Get(ctx context.Context, id string, now time.Time) (domain.PendingLogin, error) {
	var (
		p      domain.PendingLogin
		method string
	)
	err := r.c.queryRow(ctx, `
		SELECT id, identity_id, method, attempts, created_at, expires_at, consumed
		FROM pending_logins
		WHERE id = ? AND consumed = ? AND expires_at > ?`,
		id, false, now).
		Scan(&p.ID, &p.IdentityID, &method, &p.Attempts, &p.CreatedAt, &p.ExpiresAt, &p.Consumed)
	if err != nil {
		return domain.PendingLogin{}, mapNotFound(err)
	}
	p.Method = domain.TwoFactorMethod(method)
	p.CreatedAt = p.CreatedAt.UTC()
	p.ExpiresAt = p.ExpiresAt.UTC()
	return p, nil
}

func (r *pendingLoginsRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.c.queryRow(ctx,
		`UPDATE pending_logins SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, id).
		Scan(&attempts)
	return attempts, mapNotFound(err)
}

func (r *pendingLoginsRepo) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	n, err := r.c.execAffected(ctx,
		`UPDATE pending_logins SET consumed = ? WHERE id = ? AND consumed = ? AND expires_at > ?`,
		true, id, false, now)
	return n == 1, err
}

func (r *pendingLoginsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.execAffected(ctx, `DELETE FROM pending_logins WHERE expires_at <= ?`, now)
}
