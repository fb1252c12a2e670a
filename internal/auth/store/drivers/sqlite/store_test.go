package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createIdentity(t *testing.T, st store.Store, email string, now time.Time) domain.Identity {
	t.Helper()
	id := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Role:         domain.RoleClubMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Identities().Create(context.Background(), id))
	return id
}

func TestMigrationsAreIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()

	id := createIdentity(t, st, "Alice@Example.com", now)

	t.Run("email is case-insensitive and unique", func(t *testing.T) {
		got, err := st.Identities().GetByEmail(ctx, "ALICE@example.COM")
		require.NoError(t, err)
		require.Equal(t, id.ID, got.ID)
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, domain.RoleClubMember, got.Role)
		require.WithinDuration(t, now, got.CreatedAt, time.Microsecond)

		err = st.Identities().Create(ctx, domain.Identity{
			ID: idx.New().String(), Email: "alice@example.com", Role: domain.RoleGuest,
			CreatedAt: now, UpdatedAt: now,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("role update", func(t *testing.T) {
		require.NoError(t, st.Identities().UpdateRole(ctx, id.ID, domain.RoleCommitteeOfficer, now))
		got, err := st.Identities().GetByID(ctx, id.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleCommitteeOfficer, got.Role)

		require.ErrorIs(t, st.Identities().UpdateRole(ctx, "missing", domain.RoleGuest, now), store.ErrNotFound)
	})

	t.Run("soft delete hides identity and frees email", func(t *testing.T) {
		other := createIdentity(t, st, "bob@example.com", now)
		require.NoError(t, st.Identities().SoftDelete(ctx, other.ID, now))

		_, err := st.Identities().GetByID(ctx, other.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, st.Identities().Lock(ctx, other.ID), store.ErrNotFound)

		createIdentity(t, st, "bob@example.com", now)
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()
	id := createIdentity(t, st, "carol@example.com", now)

	newSession := func(created time.Time, ttl time.Duration) domain.Session {
		s := domain.Session{
			ID:                      idx.NewAt(created).String(),
			IdentityID:              id.ID,
			RefreshTokenFingerprint: "fp-" + created.String(),
			CreatedAt:               created,
			LastActiveAt:            created,
			ExpiresAt:               created.Add(ttl),
		}
		require.NoError(t, st.Sessions().Create(ctx, s))
		return s
	}

	older := newSession(now.Add(-2*time.Minute), time.Hour)
	newer := newSession(now.Add(-time.Minute), time.Hour)
	expired := newSession(now.Add(-2*time.Hour), time.Hour)

	live, err := st.Sessions().ListLive(ctx, id.ID, now)
	require.NoError(t, err)
	require.Len(t, live, 2)
	require.Equal(t, older.ID, live[0].ID)
	require.Equal(t, newer.ID, live[1].ID)

	ok, err := st.Sessions().IsLive(ctx, expired.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.Sessions().IsLive(ctx, "missing", now)
	require.NoError(t, err)
	require.False(t, ok)

	t.Run("touch keeps expiry", func(t *testing.T) {
		later := now.Add(time.Second)
		require.NoError(t, st.Sessions().Touch(ctx, newer.ID, domain.ClientMeta{UserAgent: "test/1.0"}, later))
		got, err := st.Sessions().Get(ctx, newer.ID)
		require.NoError(t, err)
		require.WithinDuration(t, later, got.LastActiveAt, time.Microsecond)
		require.WithinDuration(t, newer.ExpiresAt, got.ExpiresAt, time.Microsecond)
		require.Equal(t, "test/1.0", got.UserAgent)
	})

	t.Run("revoke flips once", func(t *testing.T) {
		flipped, err := st.Sessions().Revoke(ctx, older.ID, now)
		require.NoError(t, err)
		require.True(t, flipped)

		flipped, err = st.Sessions().Revoke(ctx, older.ID, now)
		require.NoError(t, err)
		require.False(t, flipped)

		got, err := st.Sessions().Get(ctx, older.ID)
		require.NoError(t, err)
		require.True(t, got.Revoked)
		require.NotNil(t, got.RevokedAt)
	})

	t.Run("sweep revokes expired only", func(t *testing.T) {
		n, err := st.Sessions().RevokeExpired(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		ok, err := st.Sessions().IsLive(ctx, newer.ID, now)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("revoke all", func(t *testing.T) {
		n, err := st.Sessions().RevokeAllForIdentity(ctx, id.ID, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		live, err := st.Sessions().ListLive(ctx, id.ID, now)
		require.NoError(t, err)
		require.Empty(t, live)
	})
}

func TestIssuedCodeConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()
	id := createIdentity(t, st, "dave@example.com", now)

	require.NoError(t, st.IssuedCodes().Create(ctx, domain.IssuedCode{
		ID:         idx.New().String(),
		IdentityID: id.ID,
		Purpose:    domain.PurposeLogin2FA,
		CodeHash:   "hash-1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []bool
		errs    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.IssuedCodes().Consume(ctx, id.ID, domain.PurposeLogin2FA, "hash-1", now)
			mu.Lock()
			defer mu.Unlock()
			results = append(results, ok)
			if err != nil {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	winners := 0
	for _, ok := range results {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners)

	got, err := st.IssuedCodes().Find(ctx, id.ID, domain.PurposeLogin2FA, "hash-1")
	require.NoError(t, err)
	require.True(t, got.Consumed)

	t.Run("expired code cannot be consumed", func(t *testing.T) {
		require.NoError(t, st.IssuedCodes().Create(ctx, domain.IssuedCode{
			ID: idx.New().String(), IdentityID: id.ID, Purpose: domain.PurposeLogin2FA,
			CodeHash: "hash-2", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		}))
		ok, err := st.IssuedCodes().Consume(ctx, id.ID, domain.PurposeLogin2FA, "hash-2", now.Add(2*time.Minute))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("purpose is part of the match", func(t *testing.T) {
		require.NoError(t, st.IssuedCodes().Create(ctx, domain.IssuedCode{
			ID: idx.New().String(), IdentityID: id.ID, Purpose: domain.PurposeManage2FA,
			CodeHash: "hash-3", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		}))
		ok, err := st.IssuedCodes().Consume(ctx, id.ID, domain.PurposeLogin2FA, "hash-3", now)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestTwoFactorPromotion(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()
	id := createIdentity(t, st, "erin@example.com", now)

	expires := now.Add(10 * time.Minute)
	first := domain.TwoFactorEnrollment{
		ID: idx.NewAt(now.Add(-time.Second)).String(), IdentityID: id.ID, Method: domain.MethodTOTP,
		Secret: "OLDSECRET", CreatedAt: now.Add(-time.Second), ExpiresAt: &expires,
	}
	second := domain.TwoFactorEnrollment{
		ID: idx.NewAt(now).String(), IdentityID: id.ID, Method: domain.MethodTOTP,
		Secret: "NEWSECRET", CreatedAt: now, ExpiresAt: &expires,
	}
	require.NoError(t, st.TwoFactor().CreatePending(ctx, first))
	require.NoError(t, st.TwoFactor().CreatePending(ctx, second))
	require.NoError(t, st.RecoveryCodes().Create(ctx, []domain.RecoveryCode{
		{ID: idx.New().String(), EnrollmentID: second.ID, IdentityID: id.ID, CodeHash: "rc-1", CreatedAt: now},
		{ID: idx.New().String(), EnrollmentID: second.ID, IdentityID: id.ID, CodeHash: "rc-2", CreatedAt: now},
	}))

	latest, err := st.TwoFactor().GetLatestPending(ctx, id.ID, now)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	_, err = st.TwoFactor().GetEnabled(ctx, id.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, st.TwoFactor().Promote(ctx, second.ID, expires.Add(time.Second)), store.ErrNotFound)

	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactor().DeletePending(ctx, id.ID, second.ID); err != nil {
			return err
		}
		return tx.TwoFactor().Promote(ctx, second.ID, now)
	}))

	enabled, err := st.TwoFactor().GetEnabled(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, "NEWSECRET", enabled.Secret)
	require.Equal(t, domain.TwoFactorEnabled, enabled.State)
	require.Nil(t, enabled.ExpiresAt)

	_, err = st.TwoFactor().GetLatestPending(ctx, id.ID, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	ok, err := st.RecoveryCodes().Consume(ctx, enabled.ID, "rc-1", now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.RecoveryCodes().Consume(ctx, enabled.ID, "rc-1", now)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := st.RecoveryCodes().CountUnused(ctx, enabled.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, st.TwoFactor().DeleteForIdentity(ctx, id.ID))
	n, err = st.RecoveryCodes().CountUnused(ctx, enabled.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTwoFactorAdvanceStep(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()
	id := createIdentity(t, st, "frank@example.com", now)

	expires := now.Add(10 * time.Minute)
	e := domain.TwoFactorEnrollment{
		ID: idx.New().String(), IdentityID: id.ID, Method: domain.MethodTOTP,
		Secret: "SECRET", CreatedAt: now, ExpiresAt: &expires,
	}
	require.NoError(t, st.TwoFactor().CreatePending(ctx, e))
	require.NoError(t, st.TwoFactor().Promote(ctx, e.ID, now))

	ok, err := st.TwoFactor().AdvanceStep(ctx, e.ID, 100)
	require.NoError(t, err)
	require.True(t, ok)

	for _, step := range []int64{100, 99} {
		ok, err = st.TwoFactor().AdvanceStep(ctx, e.ID, step)
		require.NoError(t, err)
		require.False(t, ok, "step %d", step)
	}

	ok, err = st.TwoFactor().AdvanceStep(ctx, e.ID, 101)
	require.NoError(t, err)
	require.True(t, ok)

	enabled, err := st.TwoFactor().GetEnabled(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, int64(101), enabled.LastUsedStep)

	// Exactly one concurrent caller claims a step.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.TwoFactor().AdvanceStep(ctx, e.ID, 102)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestTrustedDevices(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	alice := createIdentity(t, st, "alice@example.com", now)
	bob := createIdentity(t, st, "bob@example.com", now)

	device := func(identityID, fingerprint string, created time.Time, ttl time.Duration) domain.TrustedDevice {
		return domain.TrustedDevice{
			ID: idx.NewAt(created).String(), IdentityID: identityID, TokenFingerprint: fingerprint,
			UserAgent: "test", CreatedAt: created, LastUsedAt: created, ExpiresAt: created.Add(ttl),
		}
	}
	laptop := device(alice.ID, "fp-laptop", now.Add(-2*time.Hour), 24*time.Hour)
	phone := device(alice.ID, "fp-phone", now.Add(-time.Hour), 24*time.Hour)
	stale := device(alice.ID, "fp-stale", now.Add(-48*time.Hour), 24*time.Hour)
	other := device(bob.ID, "fp-bob", now, 24*time.Hour)
	for _, d := range []domain.TrustedDevice{laptop, phone, stale, other} {
		require.NoError(t, st.TrustedDevices().Create(ctx, d))
	}

	ok, err := st.TrustedDevices().Use(ctx, alice.ID, "fp-laptop", now)
	require.NoError(t, err)
	require.True(t, ok)

	// Wrong identity, expired and unknown fingerprints are not usable.
	for _, tc := range []struct{ identity, fp string }{
		{bob.ID, "fp-laptop"},
		{alice.ID, "fp-stale"},
		{alice.ID, "fp-unknown"},
	} {
		ok, err = st.TrustedDevices().Use(ctx, tc.identity, tc.fp, now)
		require.NoError(t, err)
		require.False(t, ok, tc.fp)
	}

	live, err := st.TrustedDevices().ListLive(ctx, alice.ID, now)
	require.NoError(t, err)
	require.Len(t, live, 2)
	require.Equal(t, laptop.ID, live[0].ID)
	require.True(t, now.Equal(live[0].LastUsedAt))
	require.Equal(t, "test", live[0].UserAgent)
	require.Empty(t, live[0].IPAddress)

	ok, err = st.TrustedDevices().Delete(ctx, bob.ID, phone.ID)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = st.TrustedDevices().Delete(ctx, alice.ID, phone.ID)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := st.TrustedDevices().DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = st.TrustedDevices().DeleteForIdentity(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	live, err = st.TrustedDevices().ListLive(ctx, bob.ID, now)
	require.NoError(t, err)
	require.Len(t, live, 1)
}

func TestPendingLogins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()
	id := createIdentity(t, st, "frank@example.com", now)

	p := domain.PendingLogin{
		ID: idx.New().String(), IdentityID: id.ID, Method: domain.MethodTOTP,
		CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, st.PendingLogins().Create(ctx, p))

	attempts, err := st.PendingLogins().IncrementAttempts(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, attempts)

	got, err := st.PendingLogins().Get(ctx, p.ID, now)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	ok, err := st.PendingLogins().Consume(ctx, p.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.PendingLogins().Consume(ctx, p.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = st.PendingLogins().Get(ctx, p.ID, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := st.PendingLogins().DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
