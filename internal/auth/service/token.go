package service

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/pkg/jwtx"
)

// TokenConfig configures a TokenService. Zero durations fall back to the
// jwtx defaults.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	Now           func() time.Time
}

// TokenService mints and verifies access and refresh tokens. Each kind is
// signed with its own secret, so a token presented as the wrong kind fails
// verification outright.
type TokenService struct {
	access     *jwtx.HS256
	refresh    *jwtx.HS256
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.Leeway < 0 {
		cfg.Leeway = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Leeway: cfg.Leeway, Now: cfg.Now}
	access, err := jwtx.NewHS256(cfg.AccessSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("access secret: %w", err)
	}
	refresh, err := jwtx.NewHS256(cfg.RefreshSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}

	return &TokenService{
		access:     access,
		refresh:    refresh,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken mints an access token bound to sessionID. The role claim
// is informational; authorization re-reads the current role.
func (s *TokenService) IssueAccessToken(identity *domain.Identity, sessionID string, amr []string) (string, error) {
	c := jwtx.NewClaims(jwtx.TypeAccess, identity.ID, sessionID, identity.Role.String(), amr,
		s.issuer, s.accessTTL, s.now().UTC())
	return s.access.Sign(c)
}

// IssueRefreshToken mints a refresh token bound to sessionID.
func (s *TokenService) IssueRefreshToken(identity *domain.Identity, sessionID string, amr []string) (string, error) {
	c := jwtx.NewClaims(jwtx.TypeRefresh, identity.ID, sessionID, "", amr,
		s.issuer, s.refreshTTL, s.now().UTC())
	return s.refresh.Sign(c)
}

// Verify checks token as the given kind. Failures map to ErrTokenMalformed,
// ErrTokenSignatureInvalid, ErrTokenExpired or ErrTokenWrongType. It never
// touches storage.
func (s *TokenService) Verify(token string, want jwtx.TokenType) (jwtx.Claims, error) {
	primary, other := s.access, s.refresh
	if want == jwtx.TypeRefresh {
		primary, other = s.refresh, s.access
	}

	claims, err := primary.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrInvalidSig) {
			// A token that verifies under the other secret is intact, just
			// presented in the wrong place.
			if _, otherErr := other.Verify(token); !errors.Is(otherErr, jwtx.ErrInvalidSig) &&
				!errors.Is(otherErr, jwtx.ErrMalformed) && !errors.Is(otherErr, jwtx.ErrAlgMismatch) {
				return jwtx.Claims{}, ErrTokenWrongType
			}
		}
		return jwtx.Claims{}, mapTokenErr(err)
	}

	if err := claims.ValidateType(want); err != nil {
		return jwtx.Claims{}, ErrTokenWrongType
	}
	if claims.Subject == "" || claims.SID == "" {
		return jwtx.Claims{}, ErrTokenMalformed
	}
	return claims, nil
}

func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwtx.ErrInvalidSig), errors.Is(err, jwtx.ErrAlgMismatch):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}
