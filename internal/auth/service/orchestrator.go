package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/aussiebroadwan/zenith-auth/pkg/jwtx"
	"github.com/aussiebroadwan/zenith-auth/pkg/ratelimit"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// Orchestrator defaults.
const (
	DefaultPendingLoginTTL      = 5 * time.Minute
	DefaultMaxTwoFactorAttempts = 5
)

// Requirement is what Authenticate checks after the session: a capability,
// optionally on a resource.
type Requirement struct {
	Capability domain.Capability
	Scope      *domain.Scope
}

// Orchestrator runs the public auth flows on top of the component services.
// It owns no state of its own.
type Orchestrator struct {
	Store       store.Store
	Hasher      *cryptox.Hasher
	Tokens      *TokenService
	Sessions    *SessionManager
	TwoFactor   *TwoFactorEngine
	Permissions *PermissionResolver
	Identities  *IdentityService

	// Devices is optional. Without it no device is remembered and every
	// login with 2FA enabled asks for the second factor.
	Devices *TrustedDeviceService

	// Limiters default to unlimited when nil.
	LoginLimiter   ratelimit.Limiter
	RefreshLimiter ratelimit.Limiter

	PendingLoginTTL      time.Duration
	MaxTwoFactorAttempts int

	StoreTimeout time.Duration
	Now          func() time.Time
	Metrics      *Metrics
}

func (o *Orchestrator) now() time.Time { return nowFrom(o.Now) }

func (o *Orchestrator) pendingLoginTTL() time.Duration {
	if o.PendingLoginTTL <= 0 {
		return DefaultPendingLoginTTL
	}
	return o.PendingLoginTTL
}

func (o *Orchestrator) maxTwoFactorAttempts() int {
	if o.MaxTwoFactorAttempts <= 0 {
		return DefaultMaxTwoFactorAttempts
	}
	return o.MaxTwoFactorAttempts
}

// allow consults limiter for key. A limiter that cannot answer rejects.
func allow(ctx context.Context, limiter ratelimit.Limiter, key string) error {
	if limiter == nil {
		return nil
	}
	d, err := limiter.Allow(ctx, key)
	if err != nil {
		slogx.FromContext(ctx).Error("rate limiter unavailable", "key", key, "error", err)
		return storeErr(err)
	}
	if !d.Allowed {
		return &RateLimitError{RetryAfter: d.RetryAfter}
	}
	return nil
}

// Login checks a password. Without 2FA it creates a session and returns
// tokens; with 2FA enabled it returns a pending login reference and no
// tokens, unless meta carries the token of a device the identity trusts.
// Unknown emails and wrong passwords are indistinguishable.
func (o *Orchestrator) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (_ *domain.LoginResult, err error) {
	defer func() { o.Metrics.Login(ctx, outcome(err)) }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := allow(ctx, o.LoginLimiter, "login:"+email); err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	identity, err := o.Store.Identities().GetByEmail(storeCtx, email)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		o.Hasher.VerifyDummy(ctx, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if identity.PasswordHash == "" || !o.Hasher.Verify(ctx, password, identity.PasswordHash) {
		slogx.FromContext(ctx).Info("login rejected", "identity_id", identity.ID)
		return nil, ErrInvalidCredentials
	}

	storeCtx, cancel = withTimeout(ctx, o.StoreTimeout)
	enrollment, err := o.Store.TwoFactor().GetEnabled(storeCtx, identity.ID)
	cancel()
	amr := []string{AMRPassword}
	switch {
	case err == nil:
		if o.Devices == nil || !o.Devices.Check(ctx, identity.ID, meta.DeviceToken) {
			return o.beginPendingLogin(ctx, &identity, enrollment)
		}
		amr = append(amr, AMRTrustedDevice)
	case !errors.Is(err, store.ErrNotFound):
		return nil, storeErr(err)
	}

	tokens, err := o.issueSession(ctx, &identity, amr, meta)
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("login succeeded", "identity_id", identity.ID,
		"session_id", tokens.SessionID, "amr", amr)
	return &domain.LoginResult{Tokens: tokens, Identity: &identity}, nil
}

func (o *Orchestrator) beginPendingLogin(ctx context.Context, identity *domain.Identity, enrollment domain.TwoFactorEnrollment) (*domain.LoginResult, error) {
	now := o.now()
	pending := domain.PendingLogin{
		ID:         idx.New().String(),
		IdentityID: identity.ID,
		Method:     enrollment.Method,
		CreatedAt:  now,
		ExpiresAt:  now.Add(o.pendingLoginTTL()),
	}

	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	err := o.Store.PendingLogins().Create(storeCtx, pending)
	cancel()
	if err != nil {
		return nil, storeErr(err)
	}

	if enrollment.Method == domain.MethodEmail {
		// Delivery failures leave the reference usable; the caller can ask
		// for another code.
		if _, err := o.TwoFactor.IssueEmailCode(ctx, identity, domain.PurposeLogin2FA); err != nil {
			slogx.FromContext(ctx).Warn("failed to send login code", "identity_id", identity.ID, "error", err)
		}
	}

	slogx.FromContext(ctx).Info("login awaiting second factor", "identity_id", identity.ID, "method", enrollment.Method)
	return &domain.LoginResult{
		PendingLoginID: pending.ID,
		Methods:        []string{string(enrollment.Method), AMRRecovery},
		Identity:       identity,
	}, nil
}

// VerifyTwoFactor exchanges a pending login reference and a second factor
// for tokens. A wrong code leaves the reference usable until it expires or
// MaxTwoFactorAttempts failures have been recorded. With RememberDevice set
// the pair also carries a device token for later logins; failing to record
// the device does not fail the login.
func (o *Orchestrator) VerifyTwoFactor(ctx context.Context, pendingLoginID string, proof domain.TwoFactorProof, meta domain.ClientMeta) (_ *domain.TokenPair, err error) {
	defer func() { o.Metrics.Login(ctx, outcome(err)) }()

	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	pending, err := o.Store.PendingLogins().Get(storeCtx, pendingLoginID, o.now())
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPendingLoginExpired
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if pending.Attempts >= o.maxTwoFactorAttempts() {
		return nil, ErrPendingLoginExpired
	}

	identity, err := o.identity(ctx, pending.IdentityID)
	if err != nil {
		return nil, err
	}

	amr, err := o.TwoFactor.VerifyLogin(ctx, &identity, proof)
	if err != nil {
		if errors.Is(err, ErrTwoFactorCodeInvalid) || errors.Is(err, ErrCodeAlreadyConsumed) {
			o.recordFailedAttempt(ctx, pending)
			return nil, ErrTwoFactorCodeInvalid
		}
		return nil, err
	}

	storeCtx, cancel = withTimeout(ctx, o.StoreTimeout)
	ok, err := o.Store.PendingLogins().Consume(storeCtx, pending.ID, o.now())
	cancel()
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, ErrPendingLoginExpired
	}

	tokens, err := o.issueSession(ctx, &identity, []string{AMRPassword, amr}, meta)
	if err != nil {
		return nil, err
	}
	if proof.RememberDevice && o.Devices != nil {
		token, err := o.Devices.Trust(ctx, identity.ID, meta)
		if err != nil {
			slogx.FromContext(ctx).Warn("failed to remember device", "identity_id", identity.ID, "error", err)
		} else {
			tokens.DeviceToken = token
		}
	}
	slogx.FromContext(ctx).Info("login succeeded", "identity_id", identity.ID,
		"session_id", tokens.SessionID, "second_factor", amr)
	return tokens, nil
}

func (o *Orchestrator) recordFailedAttempt(ctx context.Context, pending domain.PendingLogin) {
	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	defer cancel()

	attempts, err := o.Store.PendingLogins().IncrementAttempts(storeCtx, pending.ID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to record 2FA attempt", "pending_login_id", pending.ID, "error", err)
		return
	}
	if attempts >= o.maxTwoFactorAttempts() {
		if _, err := o.Store.PendingLogins().Consume(storeCtx, pending.ID, o.now()); err != nil {
			slogx.FromContext(ctx).Warn("failed to burn pending login", "pending_login_id", pending.ID, "error", err)
		}
		slogx.FromContext(ctx).Warn("pending login burned after repeated failures",
			"identity_id", pending.IdentityID, "attempts", attempts)
	}
}

// SendLoginCode sends a fresh login code for a pending login whose identity
// uses the email method.
func (o *Orchestrator) SendLoginCode(ctx context.Context, pendingLoginID string) error {
	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	pending, err := o.Store.PendingLogins().Get(storeCtx, pendingLoginID, o.now())
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return ErrPendingLoginExpired
	}
	if err != nil {
		return storeErr(err)
	}
	if pending.Method != domain.MethodEmail {
		return ErrInvalidRequest
	}
	if err := allow(ctx, o.LoginLimiter, "login_code:"+pending.IdentityID); err != nil {
		return err
	}

	identity, err := o.identity(ctx, pending.IdentityID)
	if err != nil {
		return err
	}
	_, err = o.TwoFactor.IssueEmailCode(ctx, &identity, domain.PurposeLogin2FA)
	return err
}

// Refresh mints a new access token for the live session a refresh token is
// bound to. The refresh token itself is not rotated.
func (o *Orchestrator) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (_ *domain.TokenPair, err error) {
	defer func() { o.Metrics.Refresh(ctx, outcome(err)) }()

	claims, err := o.Tokens.Verify(refreshToken, jwtx.TypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := allow(ctx, o.RefreshLimiter, "refresh:"+claims.SID); err != nil {
		return nil, err
	}

	if _, err := o.Sessions.CheckRefresh(ctx, claims.SID, claims.Subject, FingerprintRefreshToken(refreshToken)); err != nil {
		return nil, err
	}

	identity, err := o.identity(ctx, claims.Subject)
	if errors.Is(err, ErrIdentityNotFound) {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, err
	}

	access, err := o.Tokens.IssueAccessToken(&identity, claims.SID, claims.AMR)
	if err != nil {
		return nil, err
	}
	o.Sessions.Touch(ctx, claims.SID, meta)

	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   o.Tokens.AccessTTL(),
		SessionID:   claims.SID,
	}, nil
}

// Logout revokes the caller's session or all of its identity's sessions.
// The access token must carry a valid signature; its session may already be
// revoked, in which case logout still succeeds.
func (o *Orchestrator) Logout(ctx context.Context, accessToken string, scope domain.LogoutScope) error {
	if !scope.Valid() {
		return ErrInvalidRequest
	}
	claims, err := o.Tokens.Verify(accessToken, jwtx.TypeAccess)
	if err != nil {
		return err
	}

	switch scope {
	case domain.LogoutAllDevices:
		n, err := o.Sessions.RevokeAll(ctx, claims.Subject)
		if err != nil {
			return err
		}
		slogx.FromContext(ctx).Info("logged out everywhere", "identity_id", claims.Subject, "revoked", n)
	default:
		if err := o.Sessions.Revoke(ctx, claims.SID); err != nil {
			return err
		}
		slogx.FromContext(ctx).Info("logged out", "identity_id", claims.Subject, "session_id", claims.SID)
	}
	return nil
}

// Authenticate checks, in order, the token signature and expiry, the
// liveness of its session, and the capability in req when one is given.
// The principal's role is the identity's current one, not the role the
// token was minted with.
func (o *Orchestrator) Authenticate(ctx context.Context, accessToken string, req *Requirement) (domain.Principal, error) {
	claims, err := o.Tokens.Verify(accessToken, jwtx.TypeAccess)
	if err != nil {
		return domain.Principal{}, err
	}

	live, err := o.Sessions.IsLive(ctx, claims.SID)
	if err != nil {
		return domain.Principal{}, err
	}
	if !live {
		return domain.Principal{}, ErrSessionRevoked
	}

	principal := domain.Principal{
		IdentityID: claims.Subject,
		SessionID:  claims.SID,
		AMR:        claims.AMR,
	}
	if req == nil || req.Capability == "" {
		role, err := o.Permissions.Role(ctx, claims.Subject)
		if errors.Is(err, ErrIdentityNotFound) {
			return domain.Principal{}, ErrSessionRevoked
		}
		if err != nil {
			return domain.Principal{}, err
		}
		principal.Role = role
		return principal, nil
	}

	perms, err := o.Permissions.Require(ctx, claims.Subject, req.Capability, req.Scope)
	if err != nil {
		return domain.Principal{}, err
	}
	principal.Role = perms.Role
	principal.Permissions = &perms
	return principal, nil
}

// TwoFactorStatus reports the caller's second factor state.
func (o *Orchestrator) TwoFactorStatus(ctx context.Context, p domain.Principal) (domain.TwoFactorStatus, error) {
	return o.TwoFactor.Status(ctx, p.IdentityID)
}

// BeginTwoFactorSetup starts enrollment for the caller.
func (o *Orchestrator) BeginTwoFactorSetup(ctx context.Context, p domain.Principal, method domain.TwoFactorMethod) (domain.TwoFactorSetup, error) {
	identity, err := o.identity(ctx, p.IdentityID)
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}
	return o.TwoFactor.BeginSetup(ctx, &identity, method)
}

// ConfirmTwoFactorSetup enables the caller's pending enrollment.
func (o *Orchestrator) ConfirmTwoFactorSetup(ctx context.Context, p domain.Principal, code string) error {
	return o.TwoFactor.ConfirmSetup(ctx, p.IdentityID, code)
}

// DisableTwoFactor removes the caller's second factor given a valid proof.
func (o *Orchestrator) DisableTwoFactor(ctx context.Context, p domain.Principal, proof domain.TwoFactorProof) error {
	identity, err := o.identity(ctx, p.IdentityID)
	if err != nil {
		return err
	}
	return o.TwoFactor.Disable(ctx, &identity, proof)
}

// SendTwoFactorCode emails the caller a code for DisableTwoFactor or
// RegenerateRecoveryCodes. Only email-method enrollments use one. Requests
// share the login limiter, keyed by identity.
func (o *Orchestrator) SendTwoFactorCode(ctx context.Context, p domain.Principal) error {
	if err := allow(ctx, o.LoginLimiter, "manage_code:"+p.IdentityID); err != nil {
		return err
	}
	identity, err := o.identity(ctx, p.IdentityID)
	if err != nil {
		return err
	}
	return o.TwoFactor.SendManagementCode(ctx, &identity)
}

// ListTrustedDevices returns the caller's remembered devices.
func (o *Orchestrator) ListTrustedDevices(ctx context.Context, p domain.Principal) ([]domain.TrustedDevice, error) {
	if o.Devices == nil {
		return nil, nil
	}
	return o.Devices.List(ctx, p.IdentityID)
}

// ForgetTrustedDevice stops one of the caller's devices from skipping the
// second factor.
func (o *Orchestrator) ForgetTrustedDevice(ctx context.Context, p domain.Principal, deviceID string) error {
	if o.Devices == nil {
		return ErrTrustedDeviceNotFound
	}
	return o.Devices.Forget(ctx, p.IdentityID, deviceID)
}

// RegenerateRecoveryCodes replaces the caller's recovery codes.
func (o *Orchestrator) RegenerateRecoveryCodes(ctx context.Context, p domain.Principal, code string) ([]string, error) {
	identity, err := o.identity(ctx, p.IdentityID)
	if err != nil {
		return nil, err
	}
	return o.TwoFactor.RegenerateRecoveryCodes(ctx, &identity, code)
}

// ListSessions returns the caller's live sessions.
func (o *Orchestrator) ListSessions(ctx context.Context, p domain.Principal) ([]domain.Session, error) {
	return o.Sessions.List(ctx, p.IdentityID)
}

// RevokeSession ends one of the caller's own sessions. Sessions of other
// identities are reported as not found.
func (o *Orchestrator) RevokeSession(ctx context.Context, p domain.Principal, sessionID string) error {
	sessions, err := o.Sessions.List(ctx, p.IdentityID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			return o.Sessions.Revoke(ctx, sessionID)
		}
	}
	return ErrSessionNotFound
}

// ChangePassword replaces the caller's password. Every session of the
// identity, the caller's included, is revoked.
func (o *Orchestrator) ChangePassword(ctx context.Context, p domain.Principal, current, next string) error {
	return o.Identities.ChangePassword(ctx, p.IdentityID, current, next)
}

// ExternalPassword returns the derived password of the caller's external
// identity. Local identities have none.
func (o *Orchestrator) ExternalPassword(ctx context.Context, p domain.Principal) (string, error) {
	identity, err := o.identity(ctx, p.IdentityID)
	if err != nil {
		return "", err
	}
	if !identity.IsExternal() {
		return "", ErrForbidden
	}
	return o.Identities.ExternalPassword(identity.Email, identity.ExternalProvider), nil
}

// issueSession creates a session and the token pair bound to it. The session
// id is chosen first so the refresh token fingerprint lands in the same
// insert.
func (o *Orchestrator) issueSession(ctx context.Context, identity *domain.Identity, amr []string, meta domain.ClientMeta) (*domain.TokenPair, error) {
	sessionID := idx.New().String()

	refresh, err := o.Tokens.IssueRefreshToken(identity, sessionID, amr)
	if err != nil {
		return nil, err
	}
	access, err := o.Tokens.IssueAccessToken(identity, sessionID, amr)
	if err != nil {
		return nil, err
	}

	if _, err := o.Sessions.Create(ctx, NewSession{
		ID:                      sessionID,
		IdentityID:              identity.ID,
		RefreshTokenFingerprint: FingerprintRefreshToken(refresh),
		Meta:                    meta,
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    o.Tokens.AccessTTL(),
		SessionID:    sessionID,
	}, nil
}

func (o *Orchestrator) identity(ctx context.Context, id string) (domain.Identity, error) {
	storeCtx, cancel := withTimeout(ctx, o.StoreTimeout)
	defer cancel()

	identity, err := o.Store.Identities().GetByID(storeCtx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrIdentityNotFound
	}
	if err != nil {
		return domain.Identity{}, storeErr(err)
	}
	return identity, nil
}
