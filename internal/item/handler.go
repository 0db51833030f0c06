package item

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/item/entity"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/utilities"
)

// Handler exposes HTTP endpoints for items.
type Handler struct {
	svc    *ItemService
	logger *zap.SugaredLogger
}

func NewHandler(svc *ItemService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns every item regardless of owner.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := utilities.ParsePage(r)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.Errorw("list items failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

// ListMine returns the items of the authenticated user.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	skip, limit, err := utilities.ParsePage(r)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListForOwner(r.Context(), u.ID, skip, limit)
	if err != nil {
		h.logger.Errorw("list own items failed", "user", u.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

// CreateForUser stores an item owned by the user in the path.
func (h *Handler) CreateForUser(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req entity.ItemCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	it, err := h.svc.CreateForOwner(r.Context(), req, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrOwnerNotFound):
			utilities.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Errorw("create item failed", "owner", ownerID, "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, it)
}
