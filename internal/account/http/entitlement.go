package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
)

type EntitlementHandler struct {
	EntitlementService *service.EntitlementService
}

// HandleStatus handles GET /v1/entitlement
//
//	@Summary		Entitlement status
//	@Description	Trial, subscription and free quota of the caller. Anonymous callers get authenticated=false.
//	@Tags			Entitlement
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.EntitlementStatus
//	@Router			/v1/entitlement [get].
func (h *EntitlementHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.EntitlementService.Status(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleStartTrial handles POST /v1/entitlement/trial
//
//	@Summary		Start trial
//	@Description	Opens a 7 day trial and resets the free question count.
//	@Tags			Entitlement
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.EntitlementStatus
//	@Failure		409	{object}	ErrorResponse	"trial_already_used"
//	@Router			/v1/entitlement/trial [post].
func (h *EntitlementHandler) HandleStartTrial(w http.ResponseWriter, r *http.Request) {
	status, err := h.EntitlementService.StartTrial(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleSubscribe handles POST /v1/entitlement/subscribe
//
//	@Summary		Subscribe
//	@Description	Marks the account premium. There is no way back; no payment is taken.
//	@Tags			Entitlement
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.EntitlementStatus
//	@Router			/v1/entitlement/subscribe [post].
func (h *EntitlementHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	status, err := h.EntitlementService.Subscribe(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleAskQuestion handles POST /v1/questions
//
//	@Summary		Ask a question
//	@Description	Runs the gate for one question. A denial leaves the counter unchanged.
//	@Tags			Entitlement
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.Decision
//	@Failure		401	{object}	domain.Decision	"reason=unauthenticated"
//	@Failure		402	{object}	domain.Decision	"reason=exhausted"
//	@Router			/v1/questions [post].
func (h *EntitlementHandler) HandleAskQuestion(w http.ResponseWriter, r *http.Request) {
	decision, err := h.EntitlementService.AskQuestion(r.Context(), sessionFrom(r))
	switch {
	case errors.Is(err, service.ErrEntitlementExhausted):
		httpx.WriteJSON(w, http.StatusPaymentRequired, decision)
	case err != nil:
		writeServiceError(w, r, err)
	case decision.Reason == domain.ReasonUnauthenticated:
		httpx.WriteJSON(w, http.StatusUnauthorized, decision)
	default:
		httpx.WriteJSON(w, http.StatusOK, decision)
	}
}
