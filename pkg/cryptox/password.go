package cryptox

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Password length bounds in bytes. bcrypt ignores everything past 72 bytes so
// the upper bound is enforced rather than silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordTooWeak  = errors.New("password must mix at least three of lower, upper, digit and symbol characters")
)

// Hasher hashes and verifies passwords with bcrypt. Hashing is CPU bound, so
// calls are admitted through a weighted semaphore sized to the worker count;
// excess callers wait (or give up when their context ends) instead of
// starving request intake.
type Hasher struct {
	cost  int
	slots *semaphore.Weighted
	dummy []byte
}

// NewHasher returns a Hasher with the given cost and at most workers
// concurrent hash operations. A non-positive cost means DefaultCost; other
// values are clamped to bcrypt's range. A non-positive workers value defaults
// to GOMAXPROCS.
func NewHasher(cost, workers int) (*Hasher, error) {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Hash of a random value, used to burn the same time for unknown accounts.
	dummy, err := bcrypt.GenerateFromPassword([]byte(rand.Text()), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Hasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(workers)),
		dummy: dummy,
	}, nil
}

// Cost reports the bcrypt work factor in use.
func (h *Hasher) Cost() int { return h.cost }

// Hash produces a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A malformed or empty hash,
// or a cancelled context, yields false.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if hash == "" {
		h.VerifyDummy(ctx, plaintext)
		return false
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy spends one comparison's worth of work and always fails. Used
// when the account does not exist so response timing does not leak that.
func (h *Hasher) VerifyDummy(ctx context.Context, plaintext string) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.slots.Release(1)

	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

// CheckPasswordStrength enforces the local password policy: length bounds
// and at least three of the four character classes.
func CheckPasswordStrength(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return ErrPasswordTooWeak
	}
	return nil
}

// GeneratePassword returns a random 16 character alphanumeric password that
// satisfies CheckPasswordStrength.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	for {
		password := make([]byte, length)
		for i := range password {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return "", fmt.Errorf("failed to generate random password: %w", err)
			}
			password[i] = charset[n.Int64()]
		}
		if CheckPasswordStrength(string(password)) == nil {
			return string(password), nil
		}
	}
}
