package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/aussiebroadwan/zenith-auth/internal/auth/service"

// Metrics counts auth flow outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins      metric.Int64Counter
	refreshes   metric.Int64Counter
	revocations metric.Int64Counter
	twoFactor   metric.Int64Counter
}

// NewMetrics registers the auth counters on mp. A nil provider yields no-op
// instruments.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	logins, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh attempts by outcome"))
	if err != nil {
		return nil, err
	}
	revocations, err := meter.Int64Counter("auth.revocations",
		metric.WithDescription("Sessions revoked by scope"))
	if err != nil {
		return nil, err
	}
	twoFactor, err := meter.Int64Counter("auth.two_factor.verifications",
		metric.WithDescription("Second factor verifications by outcome"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		logins:      logins,
		refreshes:   refreshes,
		revocations: revocations,
		twoFactor:   twoFactor,
	}, nil
}

func (m *Metrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Refresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Revocation(ctx context.Context, scope string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.Add(ctx, n, metric.WithAttributes(attribute.String("scope", scope)))
}

func (m *Metrics) TwoFactor(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.twoFactor.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// outcome reduces an error to a low-cardinality metric label.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, known := range []error{
		ErrInvalidCredentials, ErrTokenExpired, ErrTokenMalformed, ErrTokenSignatureInvalid,
		ErrTokenWrongType, ErrSessionRevoked, ErrTwoFactorCodeInvalid, ErrPendingLoginExpired,
		ErrRateLimited, ErrStoreUnavailable,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "error"
}
