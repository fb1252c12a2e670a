package service_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/jwtx"
)

func TestNewTokenServiceRejectsBadSecrets(t *testing.T) {
	same := bytes.Repeat([]byte("s"), 32)
	_, err := service.NewTokenService(service.TokenConfig{AccessSecret: same, RefreshSecret: same})
	require.Error(t, err)

	_, err = service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte("short"),
		RefreshSecret: bytes.Repeat([]byte("r"), 32),
	})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	identity := &domain.Identity{ID: "01J0000000000000000000000A", Role: domain.RoleClubCoordinator}

	access, err := env.tokens.IssueAccessToken(identity, "sess-1", []string{service.AMRPassword})
	require.NoError(t, err)
	refresh, err := env.tokens.IssueRefreshToken(identity, "sess-1", []string{service.AMRPassword})
	require.NoError(t, err)

	claims, err := env.tokens.Verify(access, jwtx.TypeAccess)
	require.NoError(t, err)
	require.Equal(t, identity.ID, claims.Subject)
	require.Equal(t, "sess-1", claims.SID)
	require.Equal(t, "club_coordinator", claims.Role)
	require.Equal(t, jwtx.TypeAccess, claims.Type)
	require.True(t, env.clock.Now().Add(15*time.Minute).Equal(claims.ExpiresAt.Time))

	claims, err = env.tokens.Verify(refresh, jwtx.TypeRefresh)
	require.NoError(t, err)
	require.Equal(t, jwtx.TypeRefresh, claims.Type)
	require.Empty(t, claims.Role)
	require.True(t, env.clock.Now().Add(7*24*time.Hour).Equal(claims.ExpiresAt.Time))
}

func TestTokenVerifyReasons(t *testing.T) {
	env := newTestEnv(t)
	identity := &domain.Identity{ID: "id-1", Role: domain.RoleGuest}
	access, err := env.tokens.IssueAccessToken(identity, "sess-1", nil)
	require.NoError(t, err)
	refresh, err := env.tokens.IssueRefreshToken(identity, "sess-1", nil)
	require.NoError(t, err)

	t.Run("any single corrupted byte fails the signature", func(t *testing.T) {
		for i := range access {
			if access[i] == '.' {
				continue
			}
			b := []byte(access)
			if b[i] == 'A' {
				b[i] = 'B'
			} else {
				b[i] = 'A'
			}
			_, err := env.tokens.Verify(string(b), jwtx.TypeAccess)
			require.ErrorIs(t, err, service.ErrTokenSignatureInvalid, "byte %d", i)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, tok := range []string{"", "abc", "a.b", "a..c"} {
			_, err := env.tokens.Verify(tok, jwtx.TypeAccess)
			require.ErrorIs(t, err, service.ErrTokenMalformed, tok)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := env.tokens.Verify(refresh, jwtx.TypeAccess)
		require.ErrorIs(t, err, service.ErrTokenWrongType)
		_, err = env.tokens.Verify(access, jwtx.TypeRefresh)
		require.ErrorIs(t, err, service.ErrTokenWrongType)
	})

	t.Run("expiry honours leeway", func(t *testing.T) {
		env.clock.Advance(15*time.Minute + 4*time.Second)
		_, err := env.tokens.Verify(access, jwtx.TypeAccess)
		require.NoError(t, err)

		env.clock.Advance(2 * time.Second)
		_, err = env.tokens.Verify(access, jwtx.TypeAccess)
		require.ErrorIs(t, err, service.ErrTokenExpired)
	})
}
