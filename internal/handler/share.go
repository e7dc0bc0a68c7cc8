package handler

import (
	"log/slog"
	"net/http"

	"github.com/farhan/ranklab/internal/service"
)

// ShareHandler serves the public share-code lookup. No auth required.
type ShareHandler struct {
	shares *service.ShareService
	logger *slog.Logger
}

func NewShareHandler(shares *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, logger: logger}
}

// HandleResolve returns the published list behind a share code.
// Malformed codes are a 400; well-formed codes that match nothing
// (including private or deleted lists) are a 404.
//
// GET /api/lists/share/{code}
func (h *ShareHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	list, err := h.shares.Resolve(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
