package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateChatRequest defines the body for creating a new chat.
type CreateChatRequest struct {
	Title *string `json:"title,omitempty"`
}

// SendMessageRequest defines the body for submitting a user message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// CreateCarRequest defines the body for adding a catalog entry.
type CreateCarRequest struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	BodyType     string `json:"body_type"`
	EngineType   string `json:"engine_type"`
	Transmission string `json:"transmission"`
	Drive        string `json:"drive"`
	Seats        int    `json:"seats"`
	Year         int    `json:"year"`
	Price        int64  `json:"price"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Never includes the hashed password.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatResponse defines the data returned for a chat.
type ChatResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListChatsResponse wraps a page of chats.
type ListChatsResponse struct {
	Chats []ChatResponse `json:"chats"`
}

// MessageResponse defines the data returned for a single chat message.
type MessageResponse struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chat_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// ListMessagesResponse wraps a page of messages.
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// SendMessageResponse is returned after a user message is accepted.
// StreamURL is where the client should open its EventSource connection.
type SendMessageResponse struct {
	UserMessage MessageResponse `json:"user_message"`
	StreamURL   string          `json:"stream_url"`
}

// CarResponse defines the data returned for a catalog entry.
type CarResponse struct {
	ID           uuid.UUID `json:"id"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	BodyType     string    `json:"body_type"`
	EngineType   string    `json:"engine_type"`
	Transmission string    `json:"transmission"`
	Drive        string    `json:"drive"`
	Seats        int       `json:"seats"`
	Year         int       `json:"year"`
	Price        int64     `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListCarsResponse wraps a page of catalog entries.
type ListCarsResponse struct {
	Cars []CarResponse `json:"cars"`
}
