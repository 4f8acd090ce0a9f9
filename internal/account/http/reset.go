package http

import (
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
)

type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService

	// ExposeCode returns the code in the response. No mail is delivered,
	// so outside production this is the only way to read it.
	ExposeCode bool
}

// HandleRequest handles POST /v1/password-reset/request
//
//	@Summary		Request reset code
//	@Description	Issues a 6 digit code valid for 5 minutes. Any earlier code is invalidated.
//	@Tags			Password Reset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetRequest	true	"email"
//	@Success		200		{object}	ResetResponse
//	@Failure		404		{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/password-reset/request [post].
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	ticket, err := h.PasswordResetService.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.response(ticket))
}

// HandleResend handles POST /v1/password-reset/resend
//
//	@Summary		Resend reset code
//	@Description	Issues a fresh code for the outstanding ticket's email.
//	@Tags			Password Reset
//	@Produce		json
//	@Success		200	{object}	ResetResponse
//	@Failure		400	{object}	ErrorResponse	"invalid_reset_code"
//	@Router			/v1/password-reset/resend [post].
func (h *PasswordResetHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.PasswordResetService.ResendCode(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.response(ticket))
}

// HandleVerify handles POST /v1/password-reset/verify
//
//	@Summary		Verify reset code
//	@Tags			Password Reset
//	@Accept			json
//	@Param			request	body	VerifyCodeRequest	true	"code"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse	"invalid_reset_code"
//	@Failure		410	{object}	ErrorResponse	"expired_reset_code"
//	@Router			/v1/password-reset/verify [post].
func (h *PasswordResetHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.VerifyCode(r.Context(), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleComplete handles POST /v1/password-reset/complete
//
//	@Summary		Complete reset
//	@Description	Sets the new password on the verified ticket's account. The built-in administrator is refused.
//	@Tags			Password Reset
//	@Accept			json
//	@Param			request	body	CompleteResetRequest	true	"newPassword, confirmPassword"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse	"validation_failed or invalid_reset_code"
//	@Failure		403	{object}	ErrorResponse	"reserved_account"
//	@Router			/v1/password-reset/complete [post].
func (h *PasswordResetHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteResetRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.CompleteReset(r.Context(), req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PasswordResetHandler) response(t domain.ResetTicket) ResetResponse {
	resp := ResetResponse{Email: t.Email, ExpiresIn: int(cryptox.ResetCodePeriod.Seconds())}
	if h.ExposeCode {
		resp.Code = t.Code
	}
	return resp
}
