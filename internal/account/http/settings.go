package http

import (
	"net/http"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
)

type SettingsHandler struct {
	SettingsService *service.SettingsService
}

// HandleGet handles GET /v1/settings
//
//	@Summary		Reader settings
//	@Description	Display preferences, or the defaults when none are stored.
//	@Tags			Settings
//	@Produce		json
//	@Success		200	{object}	domain.Settings
//	@Router			/v1/settings [get].
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.SettingsService.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

// HandlePut handles PUT /v1/settings
//
//	@Summary		Save reader settings
//	@Tags			Settings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		domain.Settings	true	"settings"
//	@Success		200		{object}	domain.Settings
//	@Failure		400		{object}	ErrorResponse	"validation_failed"
//	@Router			/v1/settings [put].
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	st, err := h.SettingsService.Save(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

// HandleReset handles DELETE /v1/settings
//
//	@Summary		Reset reader settings
//	@Tags			Settings
//	@Produce		json
//	@Success		200	{object}	domain.Settings
//	@Router			/v1/settings [delete].
func (h *SettingsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	st, err := h.SettingsService.Reset(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
