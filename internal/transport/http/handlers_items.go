package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reclaim/internal/engine"
	"reclaim/internal/platform/middleware"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/httputil"
)

// handleCreateItem registers a new item owned by the caller.
func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	it, err := h.service.CreateItem(ctx, userID, engine.CreateItemParams{
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		Fingerprint: req.Fingerprint,
		Lat:         req.Lat,
		Lng:         req.Lng,
	})
	if err != nil {
		h.logClientOrServer(ctx, "create item", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, fromItem(it))
}

// handleUpdateStatus applies a lifecycle transition to an item.
func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	itemID, err := domain.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	it, err := h.service.UpdateItemStatus(ctx, itemID, domain.Status(req.Status), userID, middleware.IsModerator(ctx))
	if err != nil {
		h.logClientOrServer(ctx, "update item status", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromItem(it))
}

// handleDeleteItem removes an item from the registry.
func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	itemID, err := domain.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteItem(ctx, itemID, userID, middleware.IsModerator(ctx)); err != nil {
		h.logClientOrServer(ctx, "delete item", err)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleNearby answers the proximity search.
func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	center, radius, filters, page, err := nearbyQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summaries, err := h.service.QueryNearby(ctx, center, radius, filters, page)
	if err != nil {
		h.logClientOrServer(ctx, "nearby query", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, nearbyResponse{Items: summaries})
}

// logClientOrServer logs client errors at warn and everything else at error,
// both with the request id.
func (h *Handler) logClientOrServer(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, op+" rejected",
		"request_id", middleware.GetRequestID(ctx),
		"code", string(code),
		"error", err.Error(),
	)
}
