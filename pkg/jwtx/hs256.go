package jwtx

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC key accepted (the HS256 output size).
const MinSecretBytes = 32

// HS256 signs and verifies tokens with one shared secret. Access and refresh
// tokens each get their own instance so a leaked access secret cannot forge
// refresh tokens.
type HS256 struct {
	secret []byte
	opts   VerifyOptions
}

var (
	_ Signer   = (*HS256)(nil)
	_ Verifier = (*HS256)(nil)
)

// NewHS256 returns an HS256 signer/verifier for secret.
func NewHS256(secret []byte, opts VerifyOptions) (*HS256, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HS256{secret: key, opts: opts}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (h *HS256) Sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(h.secret)
}

// Verify checks, in order: compact structure, signature, claim decoding,
// issuer, expiry. The signature is checked before any claim is decoded so a
// corrupted token can only ever fail as ErrInvalidSig (or ErrMalformed when
// its structure is gone), never yield substituted claims.
func (h *HS256) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, ErrMalformed
	}

	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrInvalidSig
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, h.secret); err != nil {
		return Claims{}, ErrInvalidSig
	}

	var claims Claims
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Claims{}, ErrAlgMismatch
		}
		return Claims{}, ErrMalformed
	}
	if parsed.Method != jwt.SigningMethodHS256 {
		return Claims{}, ErrAlgMismatch
	}

	if err := claims.ValidateIssuer(h.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiryAt(h.opts.Now().UTC(), h.opts.Leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
