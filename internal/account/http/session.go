package http

import (
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
)

// sessionFrom returns the caller's session, or nil for an anonymous request.
func sessionFrom(r *http.Request) *domain.Session {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	sess, _ := p.Session.(*domain.Session)
	return sess
}
