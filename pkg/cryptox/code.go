package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// GenerateNumericCode returns an n digit code drawn uniformly from crypto/rand.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", digits)
	}

	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(digits)
	for range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// RecoveryCodeBytes is the entropy of one recovery code (12 hex characters).
const RecoveryCodeBytes = 6

// GenerateRecoveryCodes returns n random single-use recovery codes.
func GenerateRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, n)
	buf := make([]byte, RecoveryCodeBytes)
	for i := range codes {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		codes[i] = hex.EncodeToString(buf)
	}
	return codes, nil
}

// NormalizeCode strips separators and whitespace users tend to type and
// lower-cases the rest, so "ABCD-1234 ef56" and "abcd1234ef56" match.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(code))
}

// FingerprintToken is the SHA-256 of token as unpadded base64url (43 chars).
// Refresh tokens, recovery codes and email codes are stored only in this
// form.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// FingerprintScoped fingerprints a short code together with the scope it was
// issued for, so identical codes for different identities or purposes never
// share a hash.
func FingerprintScoped(code string, scope ...string) string {
	return FingerprintToken(strings.Join(scope, ":") + ":" + NormalizeCode(code))
}

// EqualFingerprint compares two fingerprints in constant time.
func EqualFingerprint(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
