package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/pkg/httpx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// streamHeartbeat keeps idle event streams open through proxies.
const streamHeartbeat = 15 * time.Second

type NotificationsHandler struct {
	NotificationService *service.NotificationService
	Hub                 *events.Hub
	Metrics             *metrics.Metrics
}

// HandleList handles GET /v1/notifications
//
//	@Summary		List notifications
//	@Description	The caller's queue, newest first. Administrators share one queue.
//	@Tags			Notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	NotificationListResponse
//	@Router			/v1/notifications [get].
func (h *NotificationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	queue, err := h.NotificationService.List(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	unread := 0
	for _, n := range queue {
		if !n.Read {
			unread++
		}
	}
	httpx.WriteJSON(w, http.StatusOK, NotificationListResponse{Notifications: queue, Unread: unread})
}

// HandleCreate handles POST /v1/notifications
//
//	@Summary		Add notification
//	@Description	Appends to the caller's queue. High priority notifications added by an administrator are also mailed.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		domain.NewNotification	true	"notification"
//	@Success		201		{object}	domain.Notification
//	@Failure		400		{object}	ErrorResponse	"validation_failed"
//	@Router			/v1/notifications [post].
func (h *NotificationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.NewNotification
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	created, err := h.NotificationService.Add(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// HandleMarkRead handles POST /v1/notifications/{id}/read
//
//	@Summary		Mark notification read
//	@Description	Unknown or already read ids are accepted.
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Param			id	path	string	true	"notification id"
//	@Success		204
//	@Router			/v1/notifications/{id}/read [post].
func (h *NotificationsHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.NotificationService.MarkAsRead(r.Context(), sessionFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkAllRead handles POST /v1/notifications/read-all
//
//	@Summary		Mark all notifications read
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Success		204
//	@Router			/v1/notifications/read-all [post].
func (h *NotificationsHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.NotificationService.MarkAllAsRead(r.Context(), sessionFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/notifications/{id}
//
//	@Summary		Delete notification
//	@Description	Deleting an unknown id is accepted.
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Param			id	path	string	true	"notification id"
//	@Success		204
//	@Router			/v1/notifications/{id} [delete].
func (h *NotificationsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.NotificationService.Delete(r.Context(), sessionFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear handles DELETE /v1/notifications
//
//	@Summary		Clear notifications
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Success		204
//	@Router			/v1/notifications [delete].
func (h *NotificationsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.NotificationService.ClearAll(r.Context(), sessionFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream handles GET /v1/notifications/stream
//
//	@Summary		Notification stream
//	@Description	Server-sent events for the caller's queue. EventSource clients may pass the token as access_token.
//	@Tags			Notifications
//	@Produce		text/event-stream
//	@Security		BearerAuth
//	@Param			access_token	query	string	false	"session token"
//	@Success		200
//	@Router			/v1/notifications/stream [get].
func (h *NotificationsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess := sessionFrom(r)
	if sess == nil {
		writeServiceError(w, r, service.ErrUnauthenticated)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	audience := domain.AudienceOf(*sess)
	ch, cancel := h.Hub.Subscribe(audience.String())
	defer cancel()

	h.Metrics.StreamOpened()
	defer h.Metrics.StreamClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)

	unread, err := h.NotificationService.UnreadCount(ctx, sess)
	if err != nil {
		log.Error("failed to count unread notifications", "error", err)
	}
	ready := events.New(events.KindStreamReady, audience)
	ready.Unread = &unread
	if err := writeEvent(w, ready); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-ch:
			if !open {
				return
			}
			if err := writeEvent(w, e); err != nil {
				log.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Kind, data)
	return err
}
