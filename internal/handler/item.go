package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/reversecheats/internal/apperror"
	"github.com/sakif/reversecheats/internal/auth"
	"github.com/sakif/reversecheats/internal/model"
	"github.com/sakif/reversecheats/internal/service"
)

// Items is the slice of service.ItemService the handlers use.
type Items interface {
	List(ctx context.Context, userID int64) ([]model.CheatItem, error)
	Get(ctx context.Context, userID int64, rawID string) (*model.CheatItem, error)
	Create(ctx context.Context, userID int64, in service.ItemInput) (*model.CheatItem, error)
	Update(ctx context.Context, userID int64, rawID string, in service.ItemInput) (*model.CheatItem, error)
	Delete(ctx context.Context, userID int64, rawID string) error
}

// ItemHandler serves /api/cheat-items. Every route sits behind
// auth.RequireSession; the owner is always the session's user, never a
// value from the request.
type ItemHandler struct {
	items  Items
	logger *slog.Logger
}

func NewItemHandler(items Items, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

type listResponse struct {
	Items []model.CheatItem `json:"items"`
}

// HTTP: GET /api/cheat-items → 200 {items:[...]}
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	items, err := h.items.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

// HTTP: GET /api/cheat-items/{id} → 200 item
func (h *ItemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	item, err := h.items.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HTTP: POST /api/cheat-items {title, category?, tags?, content} → 201 item
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.items.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HTTP: PUT /api/cheat-items/{id} → 200 item (without createdAt)
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.items.Update(r.Context(), userID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HTTP: DELETE /api/cheat-items/{id} → 200 {ok:true}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.items.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// userID reads the owner from the session RequireSession attached.
func (h *ItemHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated())
		return 0, false
	}
	return session.UserID, true
}

func (req itemRequest) input() service.ItemInput {
	return service.ItemInput{
		Title:    req.Title,
		Category: req.Category,
		Tags:     req.Tags,
		Content:  req.Content,
	}
}
