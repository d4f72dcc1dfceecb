package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reclaim/internal/platform/middleware"
	"reclaim/internal/subscription"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/httputil"
)

// handleCreateSubscription stores a saved search for the caller.
func (h *Handler) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	sub := &subscription.Subscription{
		OwnerID:      userID,
		Query:        req.Query,
		Category:     req.Category,
		RadiusMeters: req.RadiusMeters,
	}
	if req.RadiusMeters > 0 {
		sub.Center = domain.GeoPoint{Lat: req.Lat, Lng: req.Lng}
	}
	var err error
	if sub.CreatedFrom, err = parseTime(req.CreatedFrom, "created_from"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if sub.CreatedTo, err = parseTime(req.CreatedTo, "created_to"); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.CreateSubscription(ctx, sub)
	if err != nil {
		h.logClientOrServer(ctx, "create subscription", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, fromSubscription(created))
}

// handleDeleteSubscription removes one of the caller's saved searches.
func (h *Handler) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	subID, err := domain.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteSubscription(ctx, subID, userID); err != nil {
		h.logClientOrServer(ctx, "delete subscription", err)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListSubscriptions returns the caller's saved searches.
func (h *Handler) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	subs, err := h.service.ListSubscriptions(ctx, userID)
	if err != nil {
		h.logClientOrServer(ctx, "list subscriptions", err)
		httputil.WriteError(w, err)
		return
	}

	resp := subscriptionsResponse{Subscriptions: make([]subscriptionResponse, 0, len(subs))}
	for _, sub := range subs {
		resp.Subscriptions = append(resp.Subscriptions, fromSubscription(sub))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
