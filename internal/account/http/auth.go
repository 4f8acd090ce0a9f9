package http

import (
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	AccountService *service.AccountService
	SessionService *service.SessionService
}

// HandleSignup handles POST /v1/auth/signup
//
//	@Summary		Sign up
//	@Description	Creates an inactive account, notifies administrators and opens a session.
//	@Description	The account cannot log in again until an administrator activates it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignupRequest	true	"email, password, name"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse	"validation_failed"
//	@Failure		409		{object}	ErrorResponse	"duplicate_email"
//	@Router			/v1/auth/signup [post].
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.AccountService.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, sess)
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Checks credentials, advances the daily login streak and opens a session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"email, password"
//	@Success		200		{object}	SessionResponse
//	@Failure		401		{object}	ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	ErrorResponse	"pending_activation or deleted_account"
//	@Failure		429		{object}	ErrorResponse	"rate_limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.AccountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, sess)
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Clears the session slot. Its bearer token stops working immediately.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	ErrorResponse	"invalid_token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFromContext(r.Context())
	if err := h.AccountService.Logout(r.Context(), p.SessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, code int, sess domain.Session) {
	token, err := h.SessionService.Token(sess)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to sign session token", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to issue session token")
		return
	}
	httpx.WriteJSON(w, code, SessionResponse{Token: token, TokenType: "Bearer", Session: sess})
}
