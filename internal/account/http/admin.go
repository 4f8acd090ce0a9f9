package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
)

// AdminHandler serves the administrator console. Every route is behind
// RequireRole("admin").
type AdminHandler struct {
	AccountService      *service.AccountService
	NotificationService *service.NotificationService
	StatsService        *service.StatsService
}

// HandleListAccounts handles GET /v1/admin/accounts
//
//	@Summary		List accounts
//	@Description	Every account including soft-deleted ones. Password hashes are never returned.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	AccountListResponse
//	@Failure		403	{object}	ErrorResponse	"forbidden"
//	@Router			/v1/admin/accounts [get].
func (h *AdminHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.AccountService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, AccountListResponse{Accounts: accounts})
}

// HandleActivate handles POST /v1/admin/accounts/{id}/activate
//
//	@Summary		Activate account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"account id"
//	@Success		200	{object}	domain.Public
//	@Failure		403	{object}	ErrorResponse	"deleted_account"
//	@Failure		404	{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/admin/accounts/{id}/activate [post].
func (h *AdminHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.AccountService.Activate)
}

// HandleDeactivate handles POST /v1/admin/accounts/{id}/deactivate
//
//	@Summary		Deactivate account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"account id"
//	@Success		200	{object}	domain.Public
//	@Failure		403	{object}	ErrorResponse	"reserved_account"
//	@Failure		404	{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/admin/accounts/{id}/deactivate [post].
func (h *AdminHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.AccountService.Deactivate)
}

// HandleSoftDelete handles POST /v1/admin/accounts/{id}/delete
//
//	@Summary		Soft delete account
//	@Description	Marks the account deleted and inactive. It stays listed and can be restored.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"account id"
//	@Success		200	{object}	domain.Public
//	@Failure		403	{object}	ErrorResponse	"reserved_account"
//	@Failure		404	{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/admin/accounts/{id}/delete [post].
func (h *AdminHandler) HandleSoftDelete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.AccountService.SoftDelete)
}

// HandleRestore handles POST /v1/admin/accounts/{id}/restore
//
//	@Summary		Restore account
//	@Description	Clears the deleted flag. The account stays inactive until activated.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"account id"
//	@Success		200	{object}	domain.Public
//	@Failure		404	{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/admin/accounts/{id}/restore [post].
func (h *AdminHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.AccountService.Restore)
}

// HandleHardDelete handles DELETE /v1/admin/accounts/{id}
//
//	@Summary		Purge account
//	@Description	Removes the account with its entitlement, notifications and sessions.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			id	path	string	true	"account id"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse	"reserved_account"
//	@Failure		404	{object}	ErrorResponse	"account_not_found"
//	@Router			/v1/admin/accounts/{id} [delete].
func (h *AdminHandler) HandleHardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.AccountService.HardDelete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListEmails handles GET /v1/admin/emails
//
//	@Summary		Email log
//	@Description	Every message the service would have sent, oldest first.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	EmailLogResponse
//	@Router			/v1/admin/emails [get].
func (h *AdminHandler) HandleListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.NotificationService.EmailLog(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, EmailLogResponse{Emails: emails})
}

// HandleTestEmail handles POST /v1/admin/emails/test
//
//	@Summary		Log a test email
//	@Description	Appends a test message to the email log. Defaults to the administrator address.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		TestEmailRequest	false	"recipient"
//	@Success		201		{object}	domain.EmailLogEntry
//	@Router			/v1/admin/emails/test [post].
func (h *AdminHandler) HandleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req TestEmailRequest
	if r.ContentLength != 0 && !httpx.DecodeJSON(w, r, &req) {
		return
	}

	entry, err := h.NotificationService.SendTestEmail(r.Context(), req.To)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, entry)
}

// HandleStats handles GET /v1/admin/stats
//
//	@Summary		Dashboard counters
//	@Description	Account counts exclude administrators.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	StatsResponse
//	@Router			/v1/admin/stats [get].
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.StatsService.Compute(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id string) (domain.Public, error),
) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	acct, err := apply(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

// accountID reads the {id} path value. Anything that is not a well-formed
// id is reported as an unknown account without a store lookup.
func accountID(r *http.Request) (string, error) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return "", service.ErrAccountNotFound
	}
	return id.String(), nil
}
