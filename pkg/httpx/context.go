package httpx

import "context"

type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyPrincipal ctxKey = "principal"
)

// Principal is the caller resolved from a bearer token. Session holds the
// application's own session value so handlers need not resolve it twice.
type Principal struct {
	AccountID string
	SessionID string
	Role      string
	Session   any
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAccountID, p.AccountID)
	return context.WithValue(ctx, CtxKeyPrincipal, p)
}

// PrincipalFromContext reports the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}

func AccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyAccountID).(string); ok {
		return v
	}
	return ""
}
