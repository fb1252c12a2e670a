package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}

	_, err = GenerateNumericCode(0)
	require.Error(t, err)
}

func TestGenerateRecoveryCodes(t *testing.T) {
	codes, err := GenerateRecoveryCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		require.Len(t, c, RecoveryCodeBytes*2)
		require.NotContains(t, seen, c)
		seen[c] = struct{}{}
	}
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "abcd1234ef56", NormalizeCode(" ABCD-1234 ef56 "))
	require.Equal(t, "123456", NormalizeCode("123 456"))
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("refresh-token-1")

	require.Equal(t, fp, FingerprintToken("refresh-token-1"))
	require.NotEqual(t, fp, FingerprintToken("refresh-token-2"))
	require.Len(t, fp, 43)
	require.True(t, EqualFingerprint(fp, FingerprintToken("refresh-token-1")))
}

func TestFingerprintScoped(t *testing.T) {
	a := FingerprintScoped("123456", "user-a", "login_2fa")
	require.Equal(t, a, FingerprintScoped("123-456", "user-a", "login_2fa"))
	require.NotEqual(t, a, FingerprintScoped("123456", "user-b", "login_2fa"))
	require.NotEqual(t, a, FingerprintScoped("123456", "user-a", "manage_2fa"))
	require.True(t, EqualFingerprint(a, FingerprintScoped("123456", "user-a", "login_2fa")))
}

func TestDerivePassword(t *testing.T) {
	salt := []byte(strings.Repeat("s", MinSecretLength))

	a := DerivePassword(salt, "Alice@Example.com", "google")
	require.Equal(t, a, DerivePassword(salt, "alice@example.com ", "Google"), "normalised inputs derive the same value")
	require.NotEqual(t, a, DerivePassword(salt, "alice@example.com", "github"))
	require.NotEqual(t, a, DerivePassword([]byte(strings.Repeat("t", MinSecretLength)), "alice@example.com", "google"))
	require.LessOrEqual(t, len(a), MaxPasswordLength)
}

func TestResolveSecret(t *testing.T) {
	long := strings.Repeat("k", MinSecretLength)

	t.Run("inline wins", func(t *testing.T) {
		b, err := ResolveSecret("ACCESS", long, "/does/not/exist")
		require.NoError(t, err)
		require.Equal(t, long, string(b))
	})

	t.Run("file fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte(long+"\n"), 0o600))

		b, err := ResolveSecret("ACCESS", "", path)
		require.NoError(t, err)
		require.Equal(t, long, string(b))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ResolveSecret("ACCESS", "", "")
		require.ErrorContains(t, err, "ACCESS is not set")
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ResolveSecret("ACCESS", "short", "")
		require.ErrorIs(t, err, ErrSecretTooShort)
	})
}
