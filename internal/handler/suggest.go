package handler

import (
	"log/slog"
	"net/http"

	"github.com/farhan/ranklab/internal/auth"
	"github.com/farhan/ranklab/internal/catalog"
	"github.com/farhan/ranklab/internal/service"
)

const defaultSuggestionCount = 5

// SuggestHandler proposes new items for an existing list using whatever
// Suggester was wired in at startup. The suggester is optional; when it is
// nil the endpoint reports 503 instead of failing at startup.
type SuggestHandler struct {
	lists     *service.ListService
	suggester catalog.Suggester
	logger    *slog.Logger
}

func NewSuggestHandler(lists *service.ListService, suggester catalog.Suggester, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{lists: lists, suggester: suggester, logger: logger}
}

// HandleSuggest returns up to defaultSuggestionCount items related to the
// list's current entries.
//
// POST /api/lists/{id}/suggestions
func (h *SuggestHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "suggestions are not enabled on this server",
		})
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	listID := r.PathValue("id")

	list, err := h.lists.Get(r.Context(), userID, listID)
	if err != nil {
		writeError(w, err)
		return
	}

	seeds := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		seeds = append(seeds, item.Name)
	}

	items, err := h.suggester.Suggest(r.Context(), string(list.Category), seeds, defaultSuggestionCount)
	if err != nil {
		h.logger.Error("suggestion provider failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "suggestion provider is unavailable",
		})
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}

	writeJSON(w, http.StatusOK, map[string][]catalog.Item{"suggestions": items})
}
