package service

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// DefaultTrustedDeviceTTL is how long a remembered device may skip the
// second factor.
const DefaultTrustedDeviceTTL = 30 * 24 * time.Hour

// TrustedDeviceService remembers devices that completed a second factor.
// The device holds an opaque token; the store keeps its fingerprint only.
type TrustedDeviceService struct {
	Store store.Store
	TTL   time.Duration

	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *TrustedDeviceService) now() time.Time { return nowFrom(s.Now) }

func (s *TrustedDeviceService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTrustedDeviceTTL
	}
	return s.TTL
}

// Trust records a device for the identity and returns the token it must
// present on later logins.
func (s *TrustedDeviceService) Trust(ctx context.Context, identityID string, meta domain.ClientMeta) (string, error) {
	token := rand.Text()
	now := s.now()
	device := domain.TrustedDevice{
		ID:               idx.New().String(),
		IdentityID:       identityID,
		TokenFingerprint: cryptox.FingerprintToken(token),
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
		CreatedAt:        now,
		LastUsedAt:       now,
		ExpiresAt:        now.Add(s.ttl()),
	}

	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Store.TrustedDevices().Create(storeCtx, device); err != nil {
		return "", storeErr(err)
	}

	slogx.FromContext(ctx).Info("device trusted", "identity_id", identityID, "device_id", device.ID)
	return token, nil
}

// Check reports whether token belongs to an unexpired trusted device of the
// identity, and marks it used when it does. Any store failure reports false
// so the caller falls back to asking for the second factor.
func (s *TrustedDeviceService) Check(ctx context.Context, identityID, token string) bool {
	if token == "" {
		return false
	}

	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	ok, err := s.Store.TrustedDevices().Use(storeCtx, identityID, cryptox.FingerprintToken(token), s.now())
	if err != nil {
		slogx.FromContext(ctx).Warn("trusted device check failed", "identity_id", identityID, "error", err)
		return false
	}
	return ok
}

// List returns the identity's unexpired trusted devices.
func (s *TrustedDeviceService) List(ctx context.Context, identityID string) ([]domain.TrustedDevice, error) {
	ctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	devices, err := s.Store.TrustedDevices().ListLive(ctx, identityID, s.now())
	if err != nil {
		return nil, storeErr(err)
	}
	return devices, nil
}

// Forget removes one of the identity's devices. Devices of other identities
// are reported as not found.
func (s *TrustedDeviceService) Forget(ctx context.Context, identityID, deviceID string) error {
	storeCtx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	ok, err := s.Store.TrustedDevices().Delete(storeCtx, identityID, deviceID)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrTrustedDeviceNotFound
	}
	slogx.FromContext(ctx).Info("trusted device forgotten", "identity_id", identityID, "device_id", deviceID)
	return nil
}
