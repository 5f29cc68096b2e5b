package handlers

import (
	"log/slog"
	"net/http"

	"vortextau-chat/internal/services"
	"vortextau-chat/pkg/httputil"
)

type ModelHandlers struct {
	models *services.ModelService
}

func NewModelHandlers(models *services.ModelService) *ModelHandlers {
	return &ModelHandlers{models: models}
}

// HandleListModels handles GET /models.
func (h *ModelHandlers) HandleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.models.ListModels(r.Context())
	if err != nil {
		slog.Error("failed to fetch models", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch models")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}
