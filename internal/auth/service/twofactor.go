package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/idx"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// Second factor defaults.
const (
	DefaultTOTPIssuer        = "Zenith Platform"
	DefaultTOTPPeriod        = 30
	DefaultTOTPSkew          = 1
	DefaultRecoveryCodeCount = 10
	DefaultEmailCodeDigits   = 6
	DefaultEmailCodeTTL      = 10 * time.Minute
	DefaultPendingSetupTTL   = 10 * time.Minute
)

// AMR values recorded for each kind of second factor.
const (
	AMRPassword = "pwd"
	AMRTOTP     = "otp"
	AMREmail    = "email"
	AMRRecovery = "recovery"

	// AMRTrustedDevice stands in for the second factor on logins from a
	// remembered device.
	AMRTrustedDevice = "device"
)

// TwoFactorEngine manages enrollment and verification of second factors.
//
// An identity with no enrollment is disabled, one with only pending
// enrollments is pending, and one with an enabled enrollment is enabled.
// Secrets stay pending until the caller proves possession.
type TwoFactorEngine struct {
	Store  store.Store
	Sender CodeSender

	Issuer            string
	Period            uint
	Skew              uint
	RecoveryCodeCount int
	EmailCodeTTL      time.Duration
	PendingSetupTTL   time.Duration

	StoreTimeout time.Duration
	Now          func() time.Time
	Metrics      *Metrics
}

func (e *TwoFactorEngine) now() time.Time { return nowFrom(e.Now) }

func (e *TwoFactorEngine) issuer() string {
	if e.Issuer == "" {
		return DefaultTOTPIssuer
	}
	return e.Issuer
}

func (e *TwoFactorEngine) period() uint {
	if e.Period == 0 {
		return DefaultTOTPPeriod
	}
	return e.Period
}

func (e *TwoFactorEngine) recoveryCodeCount() int {
	if e.RecoveryCodeCount <= 0 {
		return DefaultRecoveryCodeCount
	}
	return e.RecoveryCodeCount
}

func (e *TwoFactorEngine) emailCodeTTL() time.Duration {
	if e.EmailCodeTTL <= 0 {
		return DefaultEmailCodeTTL
	}
	return e.EmailCodeTTL
}

func (e *TwoFactorEngine) pendingSetupTTL() time.Duration {
	if e.PendingSetupTTL <= 0 {
		return DefaultPendingSetupTTL
	}
	return e.PendingSetupTTL
}

// Status reports the identity's second factor state.
func (e *TwoFactorEngine) Status(ctx context.Context, identityID string) (domain.TwoFactorStatus, error) {
	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	enrollment, err := e.Store.TwoFactor().GetEnabled(ctx, identityID)
	switch {
	case err == nil:
		remaining, err := e.Store.RecoveryCodes().CountUnused(ctx, enrollment.ID)
		if err != nil {
			return domain.TwoFactorStatus{}, storeErr(err)
		}
		return domain.TwoFactorStatus{
			State:                  domain.TwoFactorEnabled,
			Method:                 enrollment.Method,
			RemainingRecoveryCodes: remaining,
			EnabledAt:              enrollment.EnabledAt,
		}, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.TwoFactorStatus{}, storeErr(err)
	}

	pending, err := e.Store.TwoFactor().GetLatestPending(ctx, identityID, e.now())
	switch {
	case err == nil:
		return domain.TwoFactorStatus{State: domain.TwoFactorPending, Method: pending.Method}, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.TwoFactorStatus{State: domain.TwoFactorDisabled}, nil
	default:
		return domain.TwoFactorStatus{}, storeErr(err)
	}
}

// BeginSetup stores a pending enrollment with fresh recovery codes and hands
// back the material to show the user once. For the email method a setup
// code is sent immediately. Only the newest pending enrollment can be
// confirmed.
func (e *TwoFactorEngine) BeginSetup(ctx context.Context, identity *domain.Identity, method domain.TwoFactorMethod) (domain.TwoFactorSetup, error) {
	if !method.Valid() {
		return domain.TwoFactorSetup{}, ErrInvalidRequest
	}
	if _, err := e.enabled(ctx, identity.ID); err == nil {
		return domain.TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
	} else if !errors.Is(err, ErrTwoFactorNotEnabled) {
		return domain.TwoFactorSetup{}, err
	}

	now := e.now()
	expiresAt := now.Add(e.pendingSetupTTL())
	enrollment := domain.TwoFactorEnrollment{
		ID:         idx.New().String(),
		IdentityID: identity.ID,
		Method:     method,
		State:      domain.TwoFactorPending,
		CreatedAt:  now,
		ExpiresAt:  &expiresAt,
	}
	setup := domain.TwoFactorSetup{
		EnrollmentID: enrollment.ID,
		Method:       method,
		Issuer:       e.issuer(),
		Account:      identity.Email,
		ExpiresAt:    expiresAt,
	}

	if method == domain.MethodTOTP {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      e.issuer(),
			AccountName: identity.Email,
			Period:      e.period(),
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return domain.TwoFactorSetup{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
		}
		enrollment.Secret = key.Secret()
		setup.Secret = key.Secret()
		setup.URL = key.URL()
	}

	codes, err := cryptox.GenerateRecoveryCodes(e.recoveryCodeCount())
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}
	setup.RecoveryCodes = codes

	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	err = e.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactor().CreatePending(ctx, enrollment); err != nil {
			return err
		}
		return tx.RecoveryCodes().Create(ctx, e.recoveryRows(enrollment, codes, now))
	})
	if err != nil {
		return domain.TwoFactorSetup{}, storeErr(err)
	}

	if method == domain.MethodEmail {
		if _, err := e.IssueEmailCode(ctx, identity, domain.PurposeSetup2FA); err != nil {
			return domain.TwoFactorSetup{}, err
		}
	}

	slogx.FromContext(ctx).Info("two-factor setup started",
		"identity_id", identity.ID, "method", method, "enrollment_id", enrollment.ID)
	return setup, nil
}

// ConfirmSetup promotes the newest pending enrollment once code proves
// possession, discarding every other pending enrollment. A wrong code
// changes nothing: the pending enrollment keeps its original expiry.
func (e *TwoFactorEngine) ConfirmSetup(ctx context.Context, identityID, code string) error {
	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	now := e.now()
	pending, err := e.Store.TwoFactor().GetLatestPending(ctx, identityID, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTwoFactorSetupNotPending
	}
	if err != nil {
		return storeErr(err)
	}

	var step int64
	switch pending.Method {
	case domain.MethodTOTP:
		var ok bool
		if step, ok = e.matchTOTP(code, pending.Secret, now); !ok {
			e.Metrics.TwoFactor(ctx, "setup_rejected")
			return ErrTwoFactorCodeInvalid
		}
	case domain.MethodEmail:
		if err := e.ConsumeEmailCode(ctx, identityID, domain.PurposeSetup2FA, code); err != nil {
			e.Metrics.TwoFactor(ctx, "setup_rejected")
			return err
		}
	}

	err = e.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactor().DeletePending(ctx, identityID, pending.ID); err != nil {
			return err
		}
		if err := tx.TwoFactor().Promote(ctx, pending.ID, now); err != nil {
			return err
		}
		if step > 0 {
			_, err := tx.TwoFactor().AdvanceStep(ctx, pending.ID, step)
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrTwoFactorSetupNotPending
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrTwoFactorAlreadyEnabled
	case err != nil:
		return storeErr(err)
	}

	e.Metrics.TwoFactor(ctx, "setup_confirmed")
	slogx.FromContext(ctx).Info("two-factor enabled", "identity_id", identityID, "method", pending.Method)
	return nil
}

// VerifyLogin checks a second factor for an enabled identity and returns the
// AMR value of the factor that matched. A primary code is checked against the
// current window (or the outstanding login code for the email method); a
// recovery code is consumed. At most one recovery code is consumed per call.
func (e *TwoFactorEngine) VerifyLogin(ctx context.Context, identity *domain.Identity, proof domain.TwoFactorProof) (string, error) {
	if proof.Empty() {
		return "", ErrTwoFactorCodeInvalid
	}
	enrollment, err := e.enabled(ctx, identity.ID)
	if err != nil {
		return "", err
	}

	amr, err := e.verify(ctx, enrollment, proof, domain.PurposeLogin2FA, true)
	if err != nil {
		e.Metrics.TwoFactor(ctx, "rejected")
		return "", err
	}
	e.Metrics.TwoFactor(ctx, amr)
	return amr, nil
}

// Disable removes every enrollment, recovery code and trusted device once
// proof checks out. Email-method identities prove possession with a code
// from SendManagementCode.
func (e *TwoFactorEngine) Disable(ctx context.Context, identity *domain.Identity, proof domain.TwoFactorProof) error {
	if proof.Empty() {
		return ErrTwoFactorCodeInvalid
	}
	enrollment, err := e.enabled(ctx, identity.ID)
	if err != nil {
		return err
	}
	if _, err := e.verify(ctx, enrollment, proof, domain.PurposeManage2FA, true); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()
	err = e.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactor().DeleteForIdentity(ctx, identity.ID); err != nil {
			return err
		}
		_, err := tx.TrustedDevices().DeleteForIdentity(ctx, identity.ID)
		return err
	})
	if err != nil {
		return storeErr(err)
	}

	slogx.FromContext(ctx).Info("two-factor disabled", "identity_id", identity.ID)
	return nil
}

// RegenerateRecoveryCodes replaces the recovery codes of an enabled
// enrollment. It requires a primary code; a recovery code is not accepted.
func (e *TwoFactorEngine) RegenerateRecoveryCodes(ctx context.Context, identity *domain.Identity, code string) ([]string, error) {
	enrollment, err := e.enabled(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if _, err := e.verify(ctx, enrollment, domain.TwoFactorProof{Code: code}, domain.PurposeManage2FA, false); err != nil {
		return nil, err
	}

	codes, err := cryptox.GenerateRecoveryCodes(e.recoveryCodeCount())
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	err = e.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RecoveryCodes().DeleteForEnrollment(ctx, enrollment.ID); err != nil {
			return err
		}
		return tx.RecoveryCodes().Create(ctx, e.recoveryRows(enrollment, codes, e.now()))
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return codes, nil
}

// SendManagementCode emails the primary code that Disable and
// RegenerateRecoveryCodes expect from an email-method identity. TOTP
// identities read theirs from the authenticator app.
func (e *TwoFactorEngine) SendManagementCode(ctx context.Context, identity *domain.Identity) error {
	enrollment, err := e.enabled(ctx, identity.ID)
	if err != nil {
		return err
	}
	if enrollment.Method != domain.MethodEmail {
		return ErrInvalidRequest
	}
	_, err = e.IssueEmailCode(ctx, identity, domain.PurposeManage2FA)
	return err
}

// IssueEmailCode generates a numeric code, stores only its fingerprint and
// hands the code to the sender. Earlier outstanding codes for the same
// purpose stop working. It returns the issued code's reference.
func (e *TwoFactorEngine) IssueEmailCode(ctx context.Context, identity *domain.Identity, purpose domain.CodePurpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidRequest
	}
	code, err := cryptox.GenerateNumericCode(DefaultEmailCodeDigits)
	if err != nil {
		return "", err
	}

	now := e.now()
	issued := domain.IssuedCode{
		ID:         idx.New().String(),
		IdentityID: identity.ID,
		Purpose:    purpose,
		CodeHash:   emailCodeHash(code, identity.ID, purpose),
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.emailCodeTTL()),
	}

	storeCtx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	err = e.Store.WithTx(storeCtx, func(tx store.Tx) error {
		if err := tx.IssuedCodes().InvalidateOutstanding(storeCtx, identity.ID, purpose); err != nil {
			return err
		}
		return tx.IssuedCodes().Create(storeCtx, issued)
	})
	if err != nil {
		return "", storeErr(err)
	}

	sender := e.Sender
	if sender == nil {
		sender = LogSender{}
	}
	if err := sender.SendCode(ctx, identity.Email, code, purpose); err != nil {
		slogx.FromContext(ctx).Error("failed to deliver one-time code",
			"identity_id", identity.ID, "purpose", purpose, "error", err)
		return "", fmt.Errorf("%w: %v", ErrCodeDeliveryFailed, err)
	}
	return issued.ID, nil
}

// ConsumeEmailCode redeems a code issued for purpose. Exactly one of any
// number of concurrent calls with the right code succeeds; the rest get
// ErrCodeAlreadyConsumed. Unknown or expired codes yield
// ErrTwoFactorCodeInvalid.
func (e *TwoFactorEngine) ConsumeEmailCode(ctx context.Context, identityID string, purpose domain.CodePurpose, code string) error {
	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	hash := emailCodeHash(code, identityID, purpose)
	ok, err := e.Store.IssuedCodes().Consume(ctx, identityID, purpose, hash, e.now())
	if err != nil {
		return storeErr(err)
	}
	if ok {
		return nil
	}

	issued, err := e.Store.IssuedCodes().Find(ctx, identityID, purpose, hash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrTwoFactorCodeInvalid
	case err != nil:
		return storeErr(err)
	case issued.Consumed:
		return ErrCodeAlreadyConsumed
	default:
		return ErrTwoFactorCodeInvalid
	}
}

func (e *TwoFactorEngine) enabled(ctx context.Context, identityID string) (domain.TwoFactorEnrollment, error) {
	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	enrollment, err := e.Store.TwoFactor().GetEnabled(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorEnrollment{}, ErrTwoFactorNotEnabled
	}
	if err != nil {
		return domain.TwoFactorEnrollment{}, storeErr(err)
	}
	return enrollment, nil
}

// verify checks proof against an enabled enrollment. Email codes must have
// been issued for purpose. A primary code that fails is retried as a
// recovery code when allowRecovery is set. A TOTP code is accepted once:
// its time step must be newer than the last accepted one.
func (e *TwoFactorEngine) verify(ctx context.Context, enrollment domain.TwoFactorEnrollment, proof domain.TwoFactorProof, purpose domain.CodePurpose, allowRecovery bool) (string, error) {
	now := e.now()

	if proof.Code != "" {
		switch enrollment.Method {
		case domain.MethodTOTP:
			if step, ok := e.matchTOTP(proof.Code, enrollment.Secret, now); ok {
				fresh, err := e.advanceStep(ctx, enrollment, step)
				if err != nil {
					return "", err
				}
				if !fresh {
					slogx.FromContext(ctx).Warn("totp code replayed",
						"identity_id", enrollment.IdentityID, "step", step)
					return "", ErrTwoFactorCodeInvalid
				}
				return AMRTOTP, nil
			}
		case domain.MethodEmail:
			err := e.ConsumeEmailCode(ctx, enrollment.IdentityID, purpose, proof.Code)
			if err == nil {
				return AMREmail, nil
			}
			if errors.Is(err, ErrStoreUnavailable) {
				return "", err
			}
		}
	}
	if !allowRecovery {
		return "", ErrTwoFactorCodeInvalid
	}

	recovery := proof.RecoveryCode
	if recovery == "" {
		recovery = proof.Code
	}

	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()
	ok, err := e.Store.RecoveryCodes().Consume(ctx, enrollment.ID,
		recoveryCodeHash(recovery, enrollment.IdentityID), now)
	if err != nil {
		return "", storeErr(err)
	}
	if !ok {
		return "", ErrTwoFactorCodeInvalid
	}

	slogx.FromContext(ctx).Info("recovery code used", "identity_id", enrollment.IdentityID)
	return AMRRecovery, nil
}

// matchTOTP returns the time step code belongs to, looking Skew steps either
// side of now.
func (e *TwoFactorEngine) matchTOTP(code, secret string, now time.Time) (int64, bool) {
	skew := int64(e.Skew)
	if skew == 0 {
		skew = DefaultTOTPSkew
	}
	code = cryptox.NormalizeCode(code)
	current := now.Unix() / int64(e.period())

	for step := current - skew; step <= current+skew; step++ {
		if step <= 0 {
			continue
		}
		ok, err := hotp.ValidateCustom(code, uint64(step), secret, hotp.ValidateOpts{
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err == nil && ok {
			return step, true
		}
	}
	return 0, false
}

// advanceStep claims step for the enrollment. Only one caller can claim a
// given step.
func (e *TwoFactorEngine) advanceStep(ctx context.Context, enrollment domain.TwoFactorEnrollment, step int64) (bool, error) {
	if step <= enrollment.LastUsedStep {
		return false, nil
	}
	ctx, cancel := withTimeout(ctx, e.StoreTimeout)
	defer cancel()

	ok, err := e.Store.TwoFactor().AdvanceStep(ctx, enrollment.ID, step)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (e *TwoFactorEngine) recoveryRows(enrollment domain.TwoFactorEnrollment, codes []string, now time.Time) []domain.RecoveryCode {
	rows := make([]domain.RecoveryCode, len(codes))
	for i, code := range codes {
		rows[i] = domain.RecoveryCode{
			ID:           idx.New().String(),
			EnrollmentID: enrollment.ID,
			IdentityID:   enrollment.IdentityID,
			CodeHash:     recoveryCodeHash(code, enrollment.IdentityID),
			CreatedAt:    now,
		}
	}
	return rows
}

func recoveryCodeHash(code, identityID string) string {
	return cryptox.FingerprintScoped(code, identityID, "recovery")
}

func emailCodeHash(code, identityID string, purpose domain.CodePurpose) string {
	return cryptox.FingerprintScoped(code, identityID, string(purpose))
}
