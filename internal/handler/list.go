package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/farhan/ranklab/internal/auth"
	"github.com/farhan/ranklab/internal/service"
)

// ListHandler serves the authenticated list CRUD endpoints.
type ListHandler struct {
	lists  *service.ListService
	logger *slog.Logger
}

func NewListHandler(lists *service.ListService, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: lists, logger: logger}
}

// HandleGetAll returns every non-deleted list owned by the caller.
//
// GET /api/lists
func (h *ListHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	lists, err := h.lists.GetForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleCreate persists a new list.
//
// POST /api/lists
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input service.ListInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid list JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	list, err := h.lists.Create(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleUpdate applies a partial update to a list the caller owns.
//
// PUT /api/lists/{id}
func (h *ListHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	listID := r.PathValue("id")

	var patch service.ListPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("invalid list patch JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	list, err := h.lists.Update(r.Context(), userID, listID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDelete soft-deletes a list. Deleting a list that is already gone
// is still a success.
//
// DELETE /api/lists/{id}
func (h *ListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	listID := r.PathValue("id")

	if err := h.lists.Delete(r.Context(), userID, listID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
