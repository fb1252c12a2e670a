package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
)

func TestLinkExternalRefusesLocalIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	local := env.register(t, "local@example.com", domain.RoleClubMember)

	_, err := env.identities.LinkExternal(ctx, "Local@Example.com", "google")
	require.ErrorIs(t, err, service.ErrEmailTaken)

	// The local password still works and the provider's derived one does not.
	login(t, env, "local@example.com")
	derived := env.identities.ExternalPassword("local@example.com", "google")
	_, err = env.orch.Login(ctx, "local@example.com", derived, device)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	got, err := env.identities.Get(ctx, local.ID)
	require.NoError(t, err)
	require.False(t, got.IsExternal())
}

func TestLinkExternalRelinksExternalIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.identities.LinkExternal(ctx, "ext@example.com", "google")
	require.NoError(t, err)

	again, err := env.identities.LinkExternal(ctx, "ext@example.com", "github")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, "github", again.ExternalProvider)

	_, err = env.orch.Login(ctx, "ext@example.com", env.identities.ExternalPassword("ext@example.com", "google"), device)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = env.orch.Login(ctx, "ext@example.com", env.identities.ExternalPassword("ext@example.com", "github"), device)
	require.NoError(t, err)

	_, err = env.identities.LinkExternal(ctx, "", "google")
	require.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestDeleteIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	identity := env.register(t, "leaving@example.com", domain.RoleClubCoordinator)
	tokens := login(t, env, "leaving@example.com")
	_, err := env.devices.Trust(ctx, identity.ID, device)
	require.NoError(t, err)

	_, err = env.perms.Resolve(ctx, identity.ID, nil)
	require.NoError(t, err)

	require.NoError(t, env.identities.Delete(ctx, identity.ID))

	_, err = env.orch.Authenticate(ctx, tokens.AccessToken, nil)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
	_, err = env.orch.Refresh(ctx, tokens.RefreshToken, device)
	require.ErrorIs(t, err, service.ErrSessionRevoked)

	_, err = env.orch.Login(ctx, "leaving@example.com", testPassword, device)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = env.perms.Resolve(ctx, identity.ID, nil)
	require.ErrorIs(t, err, service.ErrIdentityNotFound, "the cached role went with it")

	devices, err := env.devices.List(ctx, identity.ID)
	require.NoError(t, err)
	require.Empty(t, devices)

	require.ErrorIs(t, env.identities.Delete(ctx, identity.ID), service.ErrIdentityNotFound)

	// The email is free again.
	again := env.register(t, "leaving@example.com", domain.RoleClubMember)
	require.NotEqual(t, identity.ID, again.ID)
}
