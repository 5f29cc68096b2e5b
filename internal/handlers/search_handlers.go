package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/services"
	"vortextau-chat/pkg/httputil"
)

type SearchHandlers struct {
	search *services.SearchService
}

func NewSearchHandlers(search *services.SearchService) *SearchHandlers {
	return &SearchHandlers{search: search}
}

// HandleSearch handles POST /search.
func (h *SearchHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.search.Search(r.Context(), req.Query)
	switch {
	case err == nil:
		httputil.RespondJSON(w, http.StatusOK, models.SearchResponse{Results: results})
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, "query is required")
	case errors.Is(err, services.ErrSearchNotConfigured):
		slog.Error("search requested without SERP_API_KEY")
		httputil.RespondError(w, http.StatusInternalServerError, "SERP API key not configured")
	default:
		slog.Error("search failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch search results")
	}
}
