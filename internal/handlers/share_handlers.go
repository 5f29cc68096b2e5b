package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/services"
	"vortextau-chat/internal/store"
	"vortextau-chat/pkg/httputil"
)

type ShareHandlers struct {
	shares *services.ShareService
}

func NewShareHandlers(shares *services.ShareService) *ShareHandlers {
	return &ShareHandlers{shares: shares}
}

// HandleShareChat handles POST /share-chat.
func (h *ShareHandlers) HandleShareChat(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.shares.ShareChat(r.Context(), body)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		slog.Error("failed to share chat", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to share chat")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ShareResponse{ShareID: id})
}

// HandleGetSharedChat handles GET /shared-chat/{shareId}.
func (h *ShareHandlers) HandleGetSharedChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.shares.GetSharedChat(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Shared chat not found")
			return
		}
		slog.Error("failed to load shared chat", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load shared chat")
		return
	}
	httputil.RespondRawJSON(w, http.StatusOK, chat)
}
