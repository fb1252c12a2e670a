package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	testAccessSecret  = strings.Repeat("a", 32)
	testRefreshSecret = strings.Repeat("r", 32)
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_ACCESS_SECRET", testAccessSecret)
	t.Setenv("AUTH_REFRESH_SECRET", testRefreshSecret)
}

func TestLoadConfigDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "zenith-auth", cfg.Issuer)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5, cfg.MaxSessions)
	require.Equal(t, MinBcryptCost, cfg.BcryptCost)
	require.Equal(t, uint(30), cfg.TOTPPeriod)
	require.Equal(t, uint(1), cfg.TOTPSkew)
	require.Equal(t, 10*time.Minute, cfg.EmailCodeTTL)
	require.Equal(t, 30*24*time.Hour, cfg.TrustedDeviceTTL)
	require.Equal(t, 5, cfg.LoginLimit)
	require.Equal(t, 15*time.Minute, cfg.LoginWindow)
	require.Equal(t, 10, cfg.RefreshLimit)
	require.Equal(t, time.Minute, cfg.RefreshWindow)
	require.Equal(t, 5*time.Second, cfg.PermissionCacheTTL)
	require.Equal(t, "static", cfg.PolicyEngine)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
}

func TestLoadConfigOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("AUTH_MAX_SESSIONS", "3")
	t.Setenv("AUTH_BCRYPT_COST", "13")
	t.Setenv("AUTH_POLICY_ENGINE", "rego")
	t.Setenv("AUTH_DATABASE_DRIVER", "postgres")
	t.Setenv("AUTH_DATABASE_URL", "postgres://auth@localhost/auth")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 3, cfg.MaxSessions)
	require.Equal(t, 13, cfg.BcryptCost)
	require.Equal(t, "rego", cfg.PolicyEngine)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 9090, cfg.Port)
}

func TestLoadConfigSecretFiles(t *testing.T) {
	dir := t.TempDir()
	accessPath := filepath.Join(dir, "access")
	refreshPath := filepath.Join(dir, "refresh")
	require.NoError(t, os.WriteFile(accessPath, []byte(testAccessSecret+"\n"), 0o600))
	require.NoError(t, os.WriteFile(refreshPath, []byte(testRefreshSecret+"\n"), 0o600))

	t.Setenv("AUTH_ACCESS_SECRET_FILE", accessPath)
	t.Setenv("AUTH_REFRESH_SECRET_FILE", refreshPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, testAccessSecret, cfg.AccessSecret)
	require.Equal(t, testRefreshSecret, cfg.RefreshSecret)
}

func TestLoadConfigMissingSecretFile(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("AUTH_REFRESH_SECRET", testRefreshSecret)

	_, err := LoadConfig()
	require.ErrorContains(t, err, "AUTH_ACCESS_SECRET")
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "short access secret",
			env:  map[string]string{"AUTH_ACCESS_SECRET": "short"},
			want: "AUTH_ACCESS_SECRET",
		},
		{
			name: "shared secret",
			env:  map[string]string{"AUTH_REFRESH_SECRET": testAccessSecret},
			want: "must differ",
		},
		{
			name: "low bcrypt cost",
			env:  map[string]string{"AUTH_BCRYPT_COST": "10"},
			want: "AUTH_BCRYPT_COST",
		},
		{
			name: "refresh shorter than access",
			env:  map[string]string{"AUTH_ACCESS_TTL": "2h", "AUTH_REFRESH_TTL": "1h"},
			want: "AUTH_REFRESH_TTL",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"AUTH_DATABASE_DRIVER": "mysql"},
			want: "AUTH_DATABASE_DRIVER",
		},
		{
			name: "postgres without url",
			env:  map[string]string{"AUTH_DATABASE_DRIVER": "postgres"},
			want: "AUTH_DATABASE_URL",
		},
		{
			name: "unknown policy engine",
			env:  map[string]string{"AUTH_POLICY_ENGINE": "acl"},
			want: "AUTH_POLICY_ENGINE",
		},
		{
			name: "bootstrap email without password",
			env:  map[string]string{"AUTH_BOOTSTRAP_EMAIL": "root@example.com"},
			want: "must be set together",
		},
		{
			name: "negative device ttl",
			env:  map[string]string{"AUTH_TRUSTED_DEVICE_TTL": "-1h"},
			want: "AUTH_TRUSTED_DEVICE_TTL",
		},
		{
			name: "zero sessions",
			env:  map[string]string{"AUTH_MAX_SESSIONS": "0"},
			want: "AUTH_MAX_SESSIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSecrets(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.ErrorContains(t, err, tt.want)
		})
	}
}
