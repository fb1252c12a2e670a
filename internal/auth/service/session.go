package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// DefaultMaxSessions is the per-identity cap on live sessions.
const DefaultMaxSessions = 5

// SessionManager owns the session lifecycle. Liveness is the single
// authority for whether tokens bound to a session are honoured.
type SessionManager struct {
	Store store.Store

	// MaxSessions caps live sessions per identity; the oldest is revoked to
	// make room.
	MaxSessions int

	// TTL is the session lifetime, matching the refresh token lifetime.
	TTL time.Duration

	StoreTimeout time.Duration
	Now          func() time.Time
	Metrics      *Metrics
}

// NewSession describes a session about to be created. ID may be preset so
// tokens bound to it can be minted first.
type NewSession struct {
	ID                      string
	IdentityID              string
	RefreshTokenFingerprint string
	Meta                    domain.ClientMeta
}

func (m *SessionManager) now() time.Time { return nowFrom(m.Now) }

func (m *SessionManager) maxSessions() int {
	if m.MaxSessions <= 0 {
		return DefaultMaxSessions
	}
	return m.MaxSessions
}

// Create inserts a live session. When the identity already holds
// MaxSessions live sessions the oldest are revoked in the same transaction,
// so the cap holds under concurrent logins.
func (m *SessionManager) Create(ctx context.Context, ns NewSession) (domain.Session, error) {
	now := m.now()
	if ns.ID == "" {
		ns.ID = idx.New().String()
	}
	sess := domain.Session{
		ID:                      ns.ID,
		IdentityID:              ns.IdentityID,
		RefreshTokenFingerprint: ns.RefreshTokenFingerprint,
		IPAddress:               ns.Meta.IPAddress,
		UserAgent:               ns.Meta.UserAgent,
		CreatedAt:               now,
		LastActiveAt:            now,
		ExpiresAt:               now.Add(m.TTL),
	}

	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	var evicted int64
	err := m.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().Lock(ctx, ns.IdentityID); err != nil {
			return err
		}
		live, err := tx.Sessions().ListLive(ctx, ns.IdentityID, now)
		if err != nil {
			return err
		}
		for i := 0; i <= len(live)-m.maxSessions(); i++ {
			flipped, err := tx.Sessions().Revoke(ctx, live[i].ID, now)
			if err != nil {
				return err
			}
			if flipped {
				evicted++
			}
		}
		return tx.Sessions().Create(ctx, sess)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrIdentityNotFound
		}
		return domain.Session{}, storeErr(err)
	}

	if evicted > 0 {
		slogx.FromContext(ctx).Info("evicted oldest sessions",
			"identity_id", ns.IdentityID, "evicted", evicted)
		m.Metrics.Revocation(ctx, "eviction", evicted)
	}
	return sess, nil
}

// Touch records activity on a session. It is best effort: failures are
// logged and never surface to the caller.
func (m *SessionManager) Touch(ctx context.Context, sessionID string, meta domain.ClientMeta) {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	if err := m.Store.Sessions().Touch(ctx, sessionID, meta, m.now()); err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("failed to touch session", "session_id", sessionID, "error", err)
	}
}

// IsLive reports whether the session is live. Any store failure reports
// false along with ErrStoreUnavailable.
func (m *SessionManager) IsLive(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	live, err := m.Store.Sessions().IsLive(ctx, sessionID, m.now())
	if err != nil {
		return false, storeErr(err)
	}
	return live, nil
}

// CheckRefresh returns the live session a refresh token is bound to. A
// revoked, expired or unknown session, or one whose stored fingerprint does
// not match, yields ErrSessionRevoked.
func (m *SessionManager) CheckRefresh(ctx context.Context, sessionID, identityID, fingerprint string) (domain.Session, error) {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	sess, err := m.Store.Sessions().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrSessionRevoked
	}
	if err != nil {
		return domain.Session{}, storeErr(err)
	}
	if !sess.LiveAt(m.now()) || sess.IdentityID != identityID ||
		!cryptox.EqualFingerprint(sess.RefreshTokenFingerprint, fingerprint) {
		return domain.Session{}, ErrSessionRevoked
	}
	return sess, nil
}

// Revoke ends one session. Revoking an unknown or already revoked session
// succeeds.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	flipped, err := m.Store.Sessions().Revoke(ctx, sessionID, m.now())
	if err != nil {
		return storeErr(err)
	}
	if flipped {
		m.Metrics.Revocation(ctx, string(domain.LogoutThisDevice), 1)
	}
	return nil
}

// RevokeAll ends every session of the identity and forgets its trusted
// devices. It holds the same identity lock as Create, so no session created
// concurrently survives it.
func (m *SessionManager) RevokeAll(ctx context.Context, identityID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	now := m.now()
	var n int64
	err := m.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().Lock(ctx, identityID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		var err error
		if n, err = tx.Sessions().RevokeAllForIdentity(ctx, identityID, now); err != nil {
			return err
		}
		_, err = tx.TrustedDevices().DeleteForIdentity(ctx, identityID)
		return err
	})
	if err != nil {
		return 0, storeErr(err)
	}
	m.Metrics.Revocation(ctx, string(domain.LogoutAllDevices), n)
	return n, nil
}

// SweepExpired revokes sessions whose expiry has passed.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.Store.Sessions().RevokeExpired(ctx, m.now())
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// List returns the identity's live sessions, oldest first.
func (m *SessionManager) List(ctx context.Context, identityID string) ([]domain.Session, error) {
	ctx, cancel := withTimeout(ctx, m.StoreTimeout)
	defer cancel()

	sessions, err := m.Store.Sessions().ListLive(ctx, identityID, m.now())
	if err != nil {
		return nil, storeErr(err)
	}
	return sessions, nil
}

// FingerprintRefreshToken is the value stored against a session for its
// refresh token.
func FingerprintRefreshToken(token string) string {
	return cryptox.FingerprintToken(token)
}
