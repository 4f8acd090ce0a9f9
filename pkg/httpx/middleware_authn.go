package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// ErrNoSession is returned by a PrincipalResolver when the token is well
// formed but its session no longer exists (logged out or pruned).
var ErrNoSession = errors.New("httpx: no session")

// PrincipalResolver turns a raw bearer token into the calling principal.
type PrincipalResolver interface {
	ResolveToken(ctx context.Context, token string) (Principal, error)
}

// PrincipalResolverFunc adapts a function to PrincipalResolver.
type PrincipalResolverFunc func(ctx context.Context, token string) (Principal, error)

func (f PrincipalResolverFunc) ResolveToken(ctx context.Context, token string) (Principal, error) {
	return f(ctx, token)
}

// AuthnMiddleware rejects requests without a valid, live session.
func AuthnMiddleware(res PrincipalResolver) Middleware {
	return authn(res, true)
}

// OptionalAuthn attaches the principal when a valid bearer token is sent
// and otherwise lets the request through anonymously.
func OptionalAuthn(res PrincipalResolver) Middleware {
	return authn(res, false)
}

func authn(res PrincipalResolver, required bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				if required {
					writeBearerError(w, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			p, err := res.ResolveToken(ctx, raw)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.Warn("bearer token rejected", "err", err)
				}
				if required {
					writeBearerError(w, "session is not valid")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithPrincipal(ctx, p)
			ctx = slogx.WithAccount(ctx, p.AccountID, p.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// EventSource cannot set headers, so an access_token query parameter is
// accepted for GET requests.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if scheme, token, found := strings.Cut(authz, " "); found && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if r.Method == http.MethodGet {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
