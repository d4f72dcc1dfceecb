package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reclaim/internal/platform/middleware"
	"reclaim/pkg/domain"
	"reclaim/pkg/platform/httputil"
)

// handleListNotifications returns the caller's unread notifications, most
// recently touched first.
func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	list, err := h.service.ListNotifications(ctx, userID)
	if err != nil {
		h.logClientOrServer(ctx, "list notifications", err)
		httputil.WriteError(w, err)
		return
	}

	resp := notificationsResponse{Notifications: make([]notificationResponse, 0, len(list))}
	for _, n := range list {
		resp.Notifications = append(resp.Notifications, fromNotification(n))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleNotificationCount returns the caller's unread count.
func (h *Handler) handleNotificationCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	count, err := h.service.CountNotifications(ctx, userID)
	if err != nil {
		h.logClientOrServer(ctx, "count notifications", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, unreadCountResponse{Unread: count})
}

// handleMarkRead marks one of the caller's notifications as read.
func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.MarkNotificationRead(ctx, userID, id); err != nil {
		h.logClientOrServer(ctx, "mark notification read", err)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
