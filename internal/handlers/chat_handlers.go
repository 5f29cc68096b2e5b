package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/services"
	"vortextau-chat/pkg/httputil"
)

// ChatHandlers handles the streaming chat endpoint and the record log.
type ChatHandlers struct {
	generation *services.GenerationService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(generation *services.GenerationService) *ChatHandlers {
	return &ChatHandlers{generation: generation}
}

// HandleChat handles POST /chat. Invalid requests get a JSON 400; everything
// after validation is reported inside the event stream.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := services.ValidateChatRequest(req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := slog.With("request_id", middleware.GetReqID(r.Context()), "model", req.Model)
	logger.Info("chat request", "message_length", len(req.Message), "history_length", len(req.History))

	sink, err := httputil.NewEventWriter(w)
	if err != nil {
		logger.Error("cannot stream response", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, services.GenerationErrorMessage)
		return
	}

	res, err := h.generation.Stream(r.Context(), req, sink)
	if err != nil && !errors.Is(err, services.ErrGeneration) {
		logger.Error("unexpected stream error", "error", err)
	}
	logger.Info("chat stream closed", "outcome", res.Outcome, "fragments", res.Fragments, "dropped", res.Dropped)
}

// HandleListRecords handles GET /chat[?model=].
func (h *ChatHandlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.generation.ListRecords(r.Context(), r.URL.Query().Get("model"))
	if err != nil {
		slog.Error("failed to list chat records", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load chat records")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, records)
}
