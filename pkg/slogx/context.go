package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAccount tags the context logger with the authenticated account.
func WithAccount(ctx context.Context, accountID, sessionID string) context.Context {
	l := FromContext(ctx).With(
		slog.String("account_id", accountID),
		slog.String("session_id", sessionID),
	)
	return WithContext(ctx, l)
}
