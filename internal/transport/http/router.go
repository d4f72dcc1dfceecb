package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reclaim/internal/platform/middleware"
	"reclaim/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// NewRouter wires every endpoint. Health and metrics are unauthenticated;
// everything else requires a bearer token.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, logger))

		r.Post("/items", h.handleCreateItem)
		r.Get("/items/nearby", h.handleNearby)
		r.Post("/items/{id}/status", h.handleUpdateStatus)
		r.Delete("/items/{id}", h.handleDeleteItem)

		r.Post("/subscriptions", h.handleCreateSubscription)
		r.Get("/subscriptions", h.handleListSubscriptions)
		r.Delete("/subscriptions/{id}", h.handleDeleteSubscription)

		r.Get("/notifications", h.handleListNotifications)
		r.Get("/notifications/count", h.handleNotificationCount)
		r.Post("/notifications/{id}/read", h.handleMarkRead)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
