package http

import (
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
)

// MeHandler serves the caller's own session and profile.
type MeHandler struct {
	AccountService *service.AccountService
}

// HandleGet handles GET /v1/me
//
//	@Summary		Current session
//	@Description	Returns the session snapshot of the signed-in account.
//	@Tags			Me
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.Session
//	@Failure		401	{object}	ErrorResponse	"invalid_token"
//	@Router			/v1/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess == nil {
		writeServiceError(w, r, service.ErrUnauthenticated)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// HandleUpdate handles PATCH /v1/me
//
//	@Summary		Edit profile
//	@Description	Overwrites name and email on the account and on every open session.
//	@Tags			Me
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ProfileRequest	true	"name, email"
//	@Success		200		{object}	domain.Session
//	@Failure		400		{object}	ErrorResponse	"validation_failed"
//	@Failure		409		{object}	ErrorResponse	"duplicate_email"
//	@Router			/v1/me [patch].
func (h *MeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.AccountService.UpdateProfile(r.Context(), sessionFrom(r), req.Name, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// HandleChangePassword handles POST /v1/me/password
//
//	@Summary		Change password
//	@Tags			Me
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	ChangePasswordRequest	true	"currentPassword, newPassword, confirmPassword"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse	"validation_failed"
//	@Failure		401	{object}	ErrorResponse	"invalid_credentials"
//	@Router			/v1/me/password [post].
func (h *MeHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	err := h.AccountService.ChangePassword(r.Context(), sessionFrom(r), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
