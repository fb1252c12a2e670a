package service_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
)

const testPassword = "Correct-Horse-42"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store      store.Store
	clock      *fakeClock
	sender     *service.MemorySender
	reader     *sdkmetric.ManualReader
	tokens     *service.TokenService
	sessions   *service.SessionManager
	twoFactor  *service.TwoFactorEngine
	perms      *service.PermissionResolver
	identities *service.IdentityService
	devices    *service.TrustedDeviceService
	orch       *service.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := newFakeClock()
	reader := sdkmetric.NewManualReader()
	metrics, err := service.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	hasher, err := cryptox.NewHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  bytes.Repeat([]byte("a"), 32),
		RefreshSecret: bytes.Repeat([]byte("r"), 32),
		Issuer:        "zenith-test",
		Leeway:        5 * time.Second,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	sender := &service.MemorySender{}
	sessions := &service.SessionManager{
		Store:        st,
		MaxSessions:  5,
		TTL:          tokens.RefreshTTL(),
		StoreTimeout: 5 * time.Second,
		Now:          clock.Now,
		Metrics:      metrics,
	}
	twoFactor := &service.TwoFactorEngine{
		Store:        st,
		Sender:       sender,
		StoreTimeout: 5 * time.Second,
		Now:          clock.Now,
		Metrics:      metrics,
	}
	perms := &service.PermissionResolver{
		Store:  st,
		Policy: service.StaticPolicy{},
		Cache:  &service.MemoryRoleCache{TTL: 5 * time.Second, Now: clock.Now},
	}
	identities := &service.IdentityService{
		Store:        st,
		Hasher:       hasher,
		Permissions:  perms,
		Sessions:     sessions,
		ProviderSalt: []byte("provider-salt-for-tests"),
		Now:          clock.Now,
	}
	devices := &service.TrustedDeviceService{
		Store:        st,
		StoreTimeout: 5 * time.Second,
		Now:          clock.Now,
	}
	orch := &service.Orchestrator{
		Store:        st,
		Hasher:       hasher,
		Tokens:       tokens,
		Sessions:     sessions,
		TwoFactor:    twoFactor,
		Permissions:  perms,
		Identities:   identities,
		Devices:      devices,
		StoreTimeout: 5 * time.Second,
		Now:          clock.Now,
		Metrics:      metrics,
	}

	return &testEnv{
		store:      st,
		clock:      clock,
		sender:     sender,
		reader:     reader,
		tokens:     tokens,
		sessions:   sessions,
		twoFactor:  twoFactor,
		perms:      perms,
		identities: identities,
		devices:    devices,
		orch:       orch,
	}
}

func (e *testEnv) register(t *testing.T, email string, role domain.Role) domain.Identity {
	t.Helper()
	identity, err := e.identities.Register(context.Background(), email, testPassword, role)
	require.NoError(t, err)
	return identity
}

// enableTOTP runs a full TOTP enrollment and returns the secret and the
// recovery codes. The clock moves on one step so the next generated code is
// not the one spent on confirmation.
func (e *testEnv) enableTOTP(t *testing.T, identity domain.Identity) (string, []string) {
	t.Helper()
	ctx := context.Background()
	setup, err := e.twoFactor.BeginSetup(ctx, &identity, domain.MethodTOTP)
	require.NoError(t, err)
	require.NoError(t, e.twoFactor.ConfirmSetup(ctx, identity.ID, e.totpCode(t, setup.Secret)))
	e.clock.Advance(30 * time.Second)
	return setup.Secret, setup.RecoveryCodes
}

// enableEmail runs a full email-method enrollment.
func (e *testEnv) enableEmail(t *testing.T, identity domain.Identity) []string {
	t.Helper()
	ctx := context.Background()
	setup, err := e.twoFactor.BeginSetup(ctx, &identity, domain.MethodEmail)
	require.NoError(t, err)
	code, ok := e.sender.Last(identity.Email, domain.PurposeSetup2FA)
	require.True(t, ok)
	require.NoError(t, e.twoFactor.ConfirmSetup(ctx, identity.ID, code))
	return setup.RecoveryCodes
}

func (e *testEnv) totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, e.clock.Now(), totpOpts)
	require.NoError(t, err)
	return code
}

// wrongTOTPCode returns a six digit code outside the accepted window.
func (e *testEnv) wrongTOTPCode(t *testing.T, secret string) string {
	t.Helper()
	valid := map[string]bool{}
	for _, off := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := totp.GenerateCodeCustom(secret, e.clock.Now().Add(off), totpOpts)
		require.NoError(t, err)
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

var totpOpts = totp.ValidateOpts{Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

func totpCodeAt(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, totpOpts)
}

func (e *testEnv) counter(t *testing.T, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				for _, kv := range dp.Attributes.ToSlice() {
					out[kv.Value.AsString()] += dp.Value
				}
			}
		}
	}
	return out
}
