package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
)

type recoveryCodesRepo struct{ c conn }

func (r *recoveryCodesRepo) Create(ctx context.Context, codes []domain.RecoveryCode) error {
	for _, rc := range codes {
		_, err := r.c.exec(ctx, `
			INSERT INTO recovery_codes (id, enrollment_id, identity_id, code_hash, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			rc.ID, rc.EnrollmentID, rc.IdentityID, rc.CodeHash, rc.CreatedAt)
		if err != nil {
			return r.c.mapInsert(err)
		}
	}
	return nil
}

func (r *recoveryCodesRepo) Consume(ctx context.Context, enrollmentID, codeHash string, now time.Time) (bool, error) {
	n, err := r.c.execAffected(ctx, `
		UPDATE recovery_codes SET consumed_at = ?
		WHERE enrollment_id = ? AND code_hash = ? AND consumed_at IS NULL`,
		now, enrollmentID, codeHash)
	return n == 1, err
}

func (r *recoveryCodesRepo) CountUnused(ctx context.Context, enrollmentID string) (int, error) {
	var n int
	err := r.c.queryRow(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE enrollment_id = ? AND consumed_at IS NULL`,
		enrollmentID).Scan(&n)
	return n, err
}

func (r *recoveryCodesRepo) DeleteForEnrollment(ctx context.Context, enrollmentID string) error {
	_, err := r.c.exec(ctx, `DELETE FROM recovery_codes WHERE enrollment_id = ?`, enrollmentID)
	return err
}
