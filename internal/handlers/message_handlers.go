package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carassist-backend/internal/config"
	"carassist-backend/internal/models"
	"carassist-backend/internal/services"
	"carassist-backend/internal/store"
)

// MessageHandlers handles message submission and response streaming.
type MessageHandlers struct {
	messageService *services.MessageService
	cfg            *config.Config
}

// NewMessageHandlers creates a new MessageHandlers instance.
func NewMessageHandlers(messageService *services.MessageService, cfg *config.Config) *MessageHandlers {
	return &MessageHandlers{
		messageService: messageService,
		cfg:            cfg,
	}
}

// HandleSendMessage handles POST /v1/chats/{chatID}/messages.
// The user message is persisted immediately; the assistant response is
// produced later, when the client opens the returned stream URL.
func (h *MessageHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid chat ID")
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.messageService.SubmitMessage(r.Context(), userID, chatID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrRateLimited):
			RespondWithError(w, http.StatusTooManyRequests, "Too many messages, please wait a minute")
		case errors.Is(err, store.ErrNotFound):
			RespondWithError(w, http.StatusNotFound, "Chat not found")
		default:
			RespondWithError(w, http.StatusInternalServerError, "Failed to send message: "+err.Error())
		}
		return
	}

	resp := models.SendMessageResponse{
		UserMessage: models.MessageResponse{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		},
		StreamURL: fmt.Sprintf("/v1/chats/%s/messages/stream?messageId=%s", chatID, msg.ID),
	}
	RespondWithJSON(w, http.StatusCreated, resp)
}
