package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultLeeway is the clock skew tolerated on exp/nbf. It is never
	// applied to signatures.
	DefaultLeeway = 5 * time.Second
)

// TokenType separates access from refresh tokens inside the claim set.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims is the claim set of both token kinds. Refresh tokens leave Role and
// AMR empty.
type Claims struct {
	jwt.RegisteredClaims

	// Session the token is bound to.
	SID string `json:"sid"`

	// Role of the identity at issue time. Informational only; authorization
	// always re-reads the current role.
	Role string `json:"role,omitempty"`

	Type TokenType `json:"typ"`

	// Authentication Methods Reference, e.g. ["pwd"] or ["pwd","mfa"].
	AMR []string `json:"amr,omitempty"`
}

// NewClaims builds a claim set of the given type valid for ttl from now.
func NewClaims(typ TokenType, subject, sid, role string, amr []string, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:  sid,
		Role: role,
		Type: typ,
		AMR:  amr,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateType rejects a token minted for a different purpose.
func (c *Claims) ValidateType(want TokenType) error {
	if c.Type != want {
		return ErrWrongType
	}
	return nil
}

// ValidateExpiryAt checks exp and nbf against now, allowing leeway for
// clock skew between instances.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
