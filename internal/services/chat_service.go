package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carassist-backend/internal/models"
	"carassist-backend/internal/store"
)

// ChatService handles chat-related business logic.
type ChatService struct {
	store store.Store
}

// NewChatService creates a new ChatService.
func NewChatService(store store.Store) *ChatService {
	return &ChatService{store: store}
}

func mapChatToResponse(chat *models.Chat) models.ChatResponse {
	return models.ChatResponse{
		ID:        chat.ID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
}

func mapMessageToResponse(msg *models.ChatMessage) models.MessageResponse {
	return models.MessageResponse{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

// CreateChat creates a new, empty chat for the user.
func (s *ChatService) CreateChat(ctx context.Context, userID uuid.UUID, req models.CreateChatRequest) (*models.ChatResponse, error) {
	chat, err := s.store.CreateChat(ctx, store.CreateChatParams{
		ID:     uuid.New(),
		UserID: userID,
		Title:  req.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat in store: %w", err)
	}

	resp := mapChatToResponse(chat)
	return &resp, nil
}

// GetChatByID retrieves a specific chat by its ID.
func (s *ChatService) GetChatByID(ctx context.Context, userID, chatID uuid.UUID) (*models.ChatResponse, error) {
	chat, err := s.store.GetChatByID(ctx, chatID, userID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, err // Propagate not found error
		}
		return nil, fmt.Errorf("failed to get chat from store: %w", err)
	}

	resp := mapChatToResponse(chat)
	return &resp, nil
}

// ListChats retrieves a page of the user's chats.
func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID, limit, offset int) (*models.ListChatsResponse, error) {
	// Set reasonable defaults for limit and offset
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	chats, err := s.store.ListChatsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats from store: %w", err)
	}

	responseChats := make([]models.ChatResponse, 0, len(chats))
	for i := range chats {
		responseChats = append(responseChats, mapChatToResponse(&chats[i]))
	}

	return &models.ListChatsResponse{Chats: responseChats}, nil
}

// ListMessages retrieves a page of messages for a chat the user owns.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uuid.UUID, limit, offset int) (*models.ListMessagesResponse, error) {
	// Ownership check before exposing any messages
	if _, err := s.store.GetChatByID(ctx, chatID, userID); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get chat from store: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.store.ListMessagesByChat(ctx, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages from store: %w", err)
	}

	responseMessages := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responseMessages = append(responseMessages, mapMessageToResponse(&messages[i]))
	}

	return &models.ListMessagesResponse{Messages: responseMessages}, nil
}
