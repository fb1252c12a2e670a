package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// IdentityService manages identities and their roles.
type IdentityService struct {
	Store       store.Store
	Hasher      *cryptox.Hasher
	Permissions *PermissionResolver
	Sessions    *SessionManager

	// ProviderSalt keys the derived password of external identities.
	ProviderSalt []byte

	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *IdentityService) now() time.Time { return nowFrom(s.Now) }

// Get returns a live identity.
func (s *IdentityService) Get(ctx context.Context, id string) (domain.Identity, error) {
	ctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	identity, err := s.Store.Identities().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrIdentityNotFound
	}
	if err != nil {
		return domain.Identity{}, storeErr(err)
	}
	return identity, nil
}

// Register creates a local identity with a password that passes the policy.
func (s *IdentityService) Register(ctx context.Context, email, password string, role domain.Role) (domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !role.Valid() {
		return domain.Identity{}, ErrInvalidRequest
	}
	if err := cryptox.CheckPasswordStrength(password); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		return domain.Identity{}, err
	}

	now := s.now()
	identity := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	if err := s.Store.Identities().Create(ctx, identity); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Identity{}, ErrEmailTaken
		}
		return domain.Identity{}, storeErr(err)
	}

	slogx.FromContext(ctx).Info("identity registered", "identity_id", identity.ID, "role", role)
	return identity, nil
}

// AssignRole changes an identity's role. The cached role is dropped before
// returning so no later resolution sees the old one.
func (s *IdentityService) AssignRole(ctx context.Context, identityID string, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRequest
	}

	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	err := s.Store.Identities().UpdateRole(storeCtx, identityID, role, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrIdentityNotFound
	}
	if err != nil {
		return storeErr(err)
	}

	if s.Permissions != nil {
		if err := s.Permissions.Invalidate(ctx, identityID); err != nil {
			slogx.FromContext(ctx).Error("failed to invalidate cached role", "identity_id", identityID, "error", err)
			return storeErr(err)
		}
	}

	slogx.FromContext(ctx).Info("role assigned", "identity_id", identityID, "role", role)
	return nil
}

// ChangePassword replaces a local password after checking the current one
// and ends every session of the identity.
func (s *IdentityService) ChangePassword(ctx context.Context, identityID, current, next string) error {
	identity, err := s.Get(ctx, identityID)
	if err != nil {
		return err
	}
	if identity.PasswordHash == "" || !s.Hasher.Verify(ctx, current, identity.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := cryptox.CheckPasswordStrength(next); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.Hasher.Hash(ctx, next)
	if err != nil {
		return err
	}

	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Store.Identities().UpdatePasswordHash(storeCtx, identityID, hash, s.now()); err != nil {
		return storeErr(err)
	}

	if s.Sessions != nil {
		if _, err := s.Sessions.RevokeAll(ctx, identityID); err != nil {
			return err
		}
	}
	slogx.FromContext(ctx).Info("password changed", "identity_id", identityID)
	return nil
}

// LinkExternal records that email authenticated with an external provider.
// The identity's password becomes the bcrypt of its derived password, so the
// regular login flow accepts the derived value. Unknown emails get a new
// guest identity. A local identity with its own password is never taken
// over: that yields ErrEmailTaken.
func (s *IdentityService) LinkExternal(ctx context.Context, email, provider string) (domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || provider == "" {
		return domain.Identity{}, ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash(ctx, s.ExternalPassword(email, provider))
	if err != nil {
		return domain.Identity{}, err
	}

	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	now := s.now()
	identity, err := s.Store.Identities().GetByEmail(storeCtx, email)
	switch {
	case err == nil:
		if identity.PasswordHash != "" && !identity.IsExternal() {
			slogx.FromContext(ctx).Warn("external link refused for local identity",
				"identity_id", identity.ID, "provider", provider)
			return domain.Identity{}, ErrEmailTaken
		}
		if err := s.Store.Identities().LinkExternal(storeCtx, identity.ID, provider, hash, now); err != nil {
			return domain.Identity{}, storeErr(err)
		}
		identity.ExternalProvider = provider
		identity.PasswordHash = hash
		identity.UpdatedAt = now
	case errors.Is(err, store.ErrNotFound):
		identity = domain.Identity{
			ID:               idx.New().String(),
			Email:            email,
			PasswordHash:     hash,
			Role:             domain.RoleGuest,
			ExternalProvider: provider,
			EmailVerified:    true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.Store.Identities().Create(storeCtx, identity); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.Identity{}, ErrEmailTaken
			}
			return domain.Identity{}, storeErr(err)
		}
	default:
		return domain.Identity{}, storeErr(err)
	}

	slogx.FromContext(ctx).Info("external identity linked", "identity_id", identity.ID, "provider", provider)
	return identity, nil
}

// Delete soft-deletes an identity. Its sessions are revoked and its trusted
// devices forgotten in the same transaction, and its cached role is dropped.
func (s *IdentityService) Delete(ctx context.Context, identityID string) error {
	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	now := s.now()
	var revoked int64
	err := s.Store.WithTx(storeCtx, func(tx store.Tx) error {
		if err := tx.Identities().SoftDelete(storeCtx, identityID, now); err != nil {
			return err
		}
		var err error
		if revoked, err = tx.Sessions().RevokeAllForIdentity(storeCtx, identityID, now); err != nil {
			return err
		}
		_, err = tx.TrustedDevices().DeleteForIdentity(storeCtx, identityID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrIdentityNotFound
	}
	if err != nil {
		return storeErr(err)
	}

	if s.Permissions != nil {
		if err := s.Permissions.Invalidate(ctx, identityID); err != nil {
			slogx.FromContext(ctx).Error("failed to invalidate cached role", "identity_id", identityID, "error", err)
			return storeErr(err)
		}
	}

	slogx.FromContext(ctx).Info("identity deleted", "identity_id", identityID, "revoked_sessions", revoked)
	return nil
}

// ExternalPassword derives the password of an externally authenticated
// identity. The result is a credential.
func (s *IdentityService) ExternalPassword(email, provider string) string {
	return cryptox.DerivePassword(s.ProviderSalt, email, provider)
}

// Bootstrap creates the first system administrator when the store holds no
// identities. It reports whether an identity was created.
func (s *IdentityService) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}

	countCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	n, err := s.Store.Identities().Count(countCtx)
	cancel()
	if err != nil {
		return false, storeErr(err)
	}
	if n > 0 {
		return false, nil
	}

	if _, err := s.Register(ctx, email, password, domain.RoleSystemAdmin); err != nil {
		return false, err
	}
	return true, nil
}
