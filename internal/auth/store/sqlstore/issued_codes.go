package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

type issuedCodesRepo struct{ c conn }

func (r *issuedCodesRepo) Create(ctx context.Context, ic domain.IssuedCode) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO issued_codes (id, identity_id, purpose, code_hash, created_at, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ic.ID, ic.IdentityID, string(ic.Purpose), ic.CodeHash, ic.CreatedAt, ic.ExpiresAt, false)
	return r.c.mapInsert(err)
}

func (r *issuedCodesRepo) Consume(ctx context.Context, identityID string, purpose domain.CodePurpose, codeHash string, now time.Time) (bool, error) {
	n, err := r.c.execAffected(ctx, `
		UPDATE issued_codes SET consumed = ?
		WHERE identity_id = ? AND purpose = ? AND code_hash = ? AND consumed = ? AND expires_at > ?`,
		true, identityID, string(purpose), codeHash, false, now)
	return n > 0, err
}

func (r *issuedCodesRepo) Find(ctx context.Context, identityID string, purpose domain.CodePurpose, codeHash string) (domain.IssuedCode, error) {
	var (
		ic   domain.IssuedCode
		purp string
	)
	err := r.c.queryRow(ctx, `
		SELECT id, identity_id, purpose, code_hash, created_at, expires_at, consumed
		FROM issued_codes
		WHERE identity_id = ? AND purpose = ? AND code_hash = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		identityID, string(purpose), codeHash).
		Scan(&ic.ID, &ic.IdentityID, &purp, &ic.CodeHash, &ic.CreatedAt, &ic.ExpiresAt, &ic.Consumed)
	if err != nil {
		return domain.IssuedCode{}, mapNotFound(err)
	}
	ic.Purpose = domain.CodePurpose(purp)
	ic.CreatedAt = ic.CreatedAt.UTC()
	ic.ExpiresAt = ic.ExpiresAt.UTC()
	return ic, nil
}

func (r *issuedCodesRepo) InvalidateOutstanding(ctx context.Context, identityID string, purpose domain.CodePurpose) error {
	_, err := r.c.exec(ctx,
		`UPDATE issued_codes SET consumed = ? WHERE identity_id = ? AND purpose = ? AND consumed = ?`,
		true, identityID, string(purpose), false)
	return err
}

func (r *issuedCodesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.execAffected(ctx, `DELETE FROM issued_codes WHERE expires_at <= ?`, now)
}
