package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// writeServiceError maps a service error onto a status code and error body.
// Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "validation_failed",
			ErrorDescription: "request failed validation",
			Fields:           verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "a session is required")
	case errors.Is(err, service.ErrPendingActivation):
		httpx.WriteError(w, http.StatusForbidden, "pending_activation", "account is pending activation by an administrator")
	case errors.Is(err, service.ErrDeletedAccount):
		httpx.WriteError(w, http.StatusForbidden, "deleted_account", "account has been deleted")
	case errors.Is(err, service.ErrReservedAccount):
		httpx.WriteError(w, http.StatusForbidden, "reserved_account", "the built-in administrator cannot be changed")
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict, "duplicate_email", "email is already registered")
	case errors.Is(err, service.ErrTrialAlreadyUsed):
		httpx.WriteError(w, http.StatusConflict, "trial_already_used", "a trial has already been used")
	case errors.Is(err, service.ErrEntitlementExhausted):
		httpx.WriteError(w, http.StatusPaymentRequired, "entitlement_exhausted", "free questions used up, start a trial or subscribe")
	case errors.Is(err, service.ErrExpiredResetCode):
		httpx.WriteError(w, http.StatusGone, "expired_reset_code", "reset code has expired, request a new one")
	case errors.Is(err, service.ErrInvalidResetCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_reset_code", "reset code is invalid")
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound, "account_not_found", "no account found")
	case errors.Is(err, store.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", "the request raced another update, retry it")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
