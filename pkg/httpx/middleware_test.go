package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.ChainFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

var resolver = httpx.PrincipalResolverFunc(func(_ context.Context, token string) (httpx.Principal, error) {
	switch token {
	case "user-token":
		return httpx.Principal{AccountID: "acct-1", SessionID: "sess-1", Role: "user"}, nil
	case "admin-token":
		return httpx.Principal{AccountID: "acct-0", SessionID: "sess-0", Role: "admin"}, nil
	case "gone":
		return httpx.Principal{}, httpx.ErrNoSession
	}
	return httpx.Principal{}, errors.New("bad token")
})

func whoami(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(p.AccountID))
}

func TestAuthnMiddleware(t *testing.T) {
	h := httpx.ChainFunc(whoami, httpx.AuthnMiddleware(resolver))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer user-token", http.StatusOK, "acct-1"},
		{"lowercase scheme", "bearer user-token", http.StatusOK, "acct-1"},
		{"missing", "", http.StatusUnauthorized, "invalid_token"},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized, "invalid_token"},
		{"logged out", "Bearer gone", http.StatusUnauthorized, "invalid_token"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.code, rec.Code)
			require.Contains(t, rec.Body.String(), tt.body)
			if tt.code == http.StatusUnauthorized {
				require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer "))
			}
		})
	}
}

func TestOptionalAuthn(t *testing.T) {
	h := httpx.ChainFunc(whoami, httpx.OptionalAuthn(resolver))

	for header, want := range map[string]string{
		"":                  "anonymous",
		"Bearer gone":       "anonymous",
		"Bearer user-token": "acct-1",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/entitlement", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, want, rec.Body.String())
	}
}

func TestBearerTokenQueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/stream?access_token=abc", nil)
	tok, ok := httpx.BearerToken(req)
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	req = httptest.NewRequest(http.MethodPost, "/v1/notifications?access_token=abc", nil)
	_, ok = httpx.BearerToken(req)
	require.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	h := httpx.ChainFunc(whoami, httpx.AuthnMiddleware(resolver), httpx.RequireRole("admin"))

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/accounts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("admin-token"))
	require.Equal(t, http.StatusForbidden, call("user-token"))
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	decode := func(raw string) (*httptest.ResponseRecorder, bool, body) {
		var b body
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		ok := httpx.DecodeJSON(rec, req, &b)
		return rec, ok, b
	}

	_, ok, b := decode(`{"email":"a@b.com","password":"secret1"}`)
	require.True(t, ok)
	require.Equal(t, "a@b.com", b.Email)

	rec, ok, _ := decode(`{"email":"nope","password":"123"}`)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"email":"must be a valid email address"`)
	require.Contains(t, rec.Body.String(), `"password":"must be at least 6"`)

	rec, ok, _ = decode(`{"email":`)
	require.False(t, ok)
	require.Contains(t, rec.Body.String(), "invalid_request")

	rec, ok, _ = decode(`{"email":"a@b.com","password":"secret1","role":"admin"}`)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
