package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

type accessKey struct{}

// access collects request facts learned below the access log middleware so
// the final http_request line can carry them.
type access struct {
	identityID string
	sessionID  string
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithIdentity tags the contextual logger with the authenticated identity
// and session, and records them for the request's access log line.
func WithIdentity(ctx context.Context, identityID, sessionID string) context.Context {
	if a, ok := ctx.Value(accessKey{}).(*access); ok {
		a.identityID, a.sessionID = identityID, sessionID
	}
	return WithContext(ctx, FromContext(ctx).With("identity_id", identityID, "session_id", sessionID))
}
