package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/api/middleware"
	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/orchestrator"
)

// Processor runs one chat message through the command pipeline.
type Processor interface {
	Process(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// ChatHandler handles the chat webhook.
type ChatHandler struct {
	proc Processor
	log  zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(proc Processor, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{proc: proc, log: log}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.ChatID == "" {
		req.ChatID = req.UserID
	}

	resp, err := h.proc.Process(r.Context(), req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidRequest) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to process chat message")
		middleware.WriteJSON(w, http.StatusInternalServerError, domain.ChatResponse{
			ChatID:  req.ChatID,
			Message: orchestrator.FailureReply,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
