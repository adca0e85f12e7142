package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carassist-backend/internal/models"
	"carassist-backend/internal/services"
	"carassist-backend/internal/store"
)

// ChatHandlers handles HTTP requests related to chats.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// HandleCreateChat handles requests to create a new chat.
func (h *ChatHandlers) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Body is optional; an empty request creates an untitled chat.
	var req models.CreateChatRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	chat, err := h.chatService.CreateChat(r.Context(), userID, req)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create chat: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusCreated, chat)
}

// HandleGetChatByID handles requests to get a chat by ID.
func (h *ChatHandlers) HandleGetChatByID(w http.ResponseWriter, r *http.Request) {
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

	chat, err := h.chatService.GetChatByID(r.Context(), userID, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to get chat: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, chat)
}

// HandleListChats handles requests to list the user's chats.
func (h *ChatHandlers) HandleListChats(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, offset := parsePagination(r, 20)
	chats, err := h.chatService.ListChats(r.Context(), userID, limit, offset)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list chats: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, chats)
}

// HandleListMessages handles requests to list the messages of a chat.
func (h *ChatHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
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

	limit, offset := parsePagination(r, 50)
	messages, err := h.chatService.ListMessages(r.Context(), userID, chatID, limit, offset)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to list messages: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, messages)
}
