package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
)

// rememberDevice completes a 2FA login asking to remember the device and
// returns the device token.
func rememberDevice(t *testing.T, env *testEnv, email, secret string) string {
	t.Helper()
	ctx := context.Background()
	res, err := env.orch.Login(ctx, email, testPassword, device)
	require.NoError(t, err)
	require.True(t, res.TwoFactorRequired())

	tokens, err := env.orch.VerifyTwoFactor(ctx, res.PendingLoginID,
		domain.TwoFactorProof{Code: env.totpCode(t, secret), RememberDevice: true}, device)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.DeviceToken)
	return tokens.DeviceToken
}

func withDevice(token string) domain.ClientMeta {
	meta := device
	meta.DeviceToken = token
	return meta
}

func TestTrustedDeviceSkipsSecondFactor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	identity := env.register(t, "trusted@example.com", domain.RoleClubMember)
	secret, _ := env.enableTOTP(t, identity)

	token := rememberDevice(t, env, "trusted@example.com", secret)

	stored, err := env.devices.List(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, cryptox.FingerprintToken(token), stored[0].TokenFingerprint)
	require.NotEqual(t, token, stored[0].TokenFingerprint)
	require.Equal(t, device.UserAgent, stored[0].UserAgent)

	env.clock.Advance(time.Hour)
	res, err := env.orch.Login(ctx, "trusted@example.com", testPassword, withDevice(token))
	require.NoError(t, err)
	require.False(t, res.TwoFactorRequired())

	principal, err := env.orch.Authenticate(ctx, res.Tokens.AccessToken, nil)
	require.NoError(t, err)
	require.Equal(t, []string{service.AMRPassword, service.AMRTrustedDevice}, principal.AMR)

	stored, err = env.devices.List(ctx, identity.ID)
	require.NoError(t, err)
	require.WithinDuration(t, env.clock.Now(), stored[0].LastUsedAt, time.Microsecond)

	t.Run("password still required", func(t *testing.T) {
		_, err := env.orch.Login(ctx, "trusted@example.com", "Wrong-Password-1", withDevice(token))
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown token asks for the second factor", func(t *testing.T) {
		res, err := env.orch.Login(ctx, "trusted@example.com", testPassword, withDevice("not-a-device"))
		require.NoError(t, err)
		require.True(t, res.TwoFactorRequired())
	})
}

func TestTrustedDeviceIsBoundToIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice@example.com", domain.RoleClubMember)
	bob := env.register(t, "bob@example.com", domain.RoleClubMember)
	aliceSecret, _ := env.enableTOTP(t, alice)
	env.enableTOTP(t, bob)

	token := rememberDevice(t, env, "alice@example.com", aliceSecret)

	res, err := env.orch.Login(ctx, "bob@example.com", testPassword, withDevice(token))
	require.NoError(t, err)
	require.True(t, res.TwoFactorRequired())
}

func TestTrustedDeviceExpires(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.devices.TTL = 24 * time.Hour
	identity := env.register(t, "lapse@example.com", domain.RoleClubMember)
	secret, _ := env.enableTOTP(t, identity)

	token := rememberDevice(t, env, "lapse@example.com", secret)

	env.clock.Advance(24 * time.Hour)
	res, err := env.orch.Login(ctx, "lapse@example.com", testPassword, withDevice(token))
	require.NoError(t, err)
	require.True(t, res.TwoFactorRequired())

	devices, err := env.orch.ListTrustedDevices(ctx, domain.Principal{IdentityID: identity.ID})
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestNoDeviceTokenUnlessAsked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	identity := env.register(t, "forget-me@example.com", domain.RoleClubMember)
	secret, _ := env.enableTOTP(t, identity)

	res, err := env.orch.Login(ctx, "forget-me@example.com", testPassword, device)
	require.NoError(t, err)
	tokens, err := env.orch.VerifyTwoFactor(ctx, res.PendingLoginID, domain.TwoFactorProof{Code: env.totpCode(t, secret)}, device)
	require.NoError(t, err)
	require.Empty(t, tokens.DeviceToken)

	devices, err := env.devices.List(ctx, identity.ID)
	require.NoError(t, err)
	require.Empty(t, devices)

	t.Run("without a device service", func(t *testing.T) {
		env.orch.Devices = nil
		env.clock.Advance(30 * time.Second)
		res, err := env.orch.Login(ctx, "forget-me@example.com", testPassword, device)
		require.NoError(t, err)
		tokens, err := env.orch.VerifyTwoFactor(ctx, res.PendingLoginID,
			domain.TwoFactorProof{Code: env.totpCode(t, secret), RememberDevice: true}, device)
		require.NoError(t, err)
		require.Empty(t, tokens.DeviceToken)
	})
}

func TestForgetTrustedDevice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	identity := env.register(t, "owner@example.com", domain.RoleClubMember)
	other := env.register(t, "other@example.com", domain.RoleClubMember)
	secret, _ := env.enableTOTP(t, identity)

	token := rememberDevice(t, env, "owner@example.com", secret)
	owner := domain.Principal{IdentityID: identity.ID}

	devices, err := env.orch.ListTrustedDevices(ctx, owner)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	err = env.orch.ForgetTrustedDevice(ctx, domain.Principal{IdentityID: other.ID}, devices[0].ID)
	require.ErrorIs(t, err, service.ErrTrustedDeviceNotFound)

	require.NoError(t, env.orch.ForgetTrustedDevice(ctx, owner, devices[0].ID))
	require.ErrorIs(t, env.orch.ForgetTrustedDevice(ctx, owner, devices[0].ID), service.ErrTrustedDeviceNotFound)

	res, err := env.orch.Login(ctx, "owner@example.com", testPassword, withDevice(token))
	require.NoError(t, err)
	require.True(t, res.TwoFactorRequired())
}

func TestTrustedDevicesEndWithCredentials(t *testing.T) {
	tests := []struct {
		name   string
		revoke func(t *testing.T, env *testEnv, identity domain.Identity, secret string)
	}{
		{
			name: "logout everywhere",
			revoke: func(t *testing.T, env *testEnv, identity domain.Identity, _ string) {
				_, err := env.sessions.RevokeAll(context.Background(), identity.ID)
				require.NoError(t, err)
			},
		},
		{
			name: "2fa disabled",
			revoke: func(t *testing.T, env *testEnv, identity domain.Identity, secret string) {
				env.clock.Advance(30 * time.Second)
				require.NoError(t, env.twoFactor.Disable(context.Background(), &identity,
					domain.TwoFactorProof{Code: env.totpCode(t, secret)}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			identity := env.register(t, "ending@example.com", domain.RoleClubMember)
			secret, _ := env.enableTOTP(t, identity)
			rememberDevice(t, env, "ending@example.com", secret)

			tt.revoke(t, env, identity, secret)

			devices, err := env.devices.List(ctx, identity.ID)
			require.NoError(t, err)
			require.Empty(t, devices)
		})
	}
}

func TestTrustedDeviceCheckFailsClosed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	identity := env.register(t, "closed@example.com", domain.RoleClubMember)

	token, err := env.devices.Trust(ctx, identity.ID, device)
	require.NoError(t, err)
	require.True(t, env.devices.Check(ctx, identity.ID, token))
	require.False(t, env.devices.Check(ctx, identity.ID, ""))

	require.NoError(t, env.store.Close())
	require.False(t, env.devices.Check(ctx, identity.ID, token))
}
