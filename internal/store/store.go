package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"carassist-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateChatParams contains parameters for creating a chat.
type CreateChatParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Title  *string
}

// CreateMessageParams contains parameters for appending a message to a chat.
type CreateMessageParams struct {
	ID      uuid.UUID
	ChatID  uuid.UUID
	Role    models.MessageRole
	Content string
}

// CreateCarParams contains parameters for inserting a catalog entry.
type CreateCarParams struct {
	ID           uuid.UUID
	Brand        string
	Model        string
	BodyType     string
	EngineType   string
	Transmission string
	Drive        string
	Seats        int
	Year         int
	Price        int64
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Chat operations. All lookups are scoped by (id, userID) so one user
	// can never read or write another user's chats.
	CreateChat(ctx context.Context, arg CreateChatParams) (*models.Chat, error)
	GetChatByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Chat, error)
	UpdateChatTitle(ctx context.Context, id uuid.UUID, userID uuid.UUID, title string) error

	// Message operations. Messages are append-only.
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.ChatMessage, error)
	GetMessageByID(ctx context.Context, id uuid.UUID, chatID uuid.UUID) (*models.ChatMessage, error)
	ListMessagesByChat(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error)
	CountMessagesByChat(ctx context.Context, chatID uuid.UUID, role models.MessageRole) (int64, error)

	// Car catalog operations
	CreateCar(ctx context.Context, arg CreateCarParams) (*models.Car, error)
	GetCarByID(ctx context.Context, id uuid.UUID) (*models.Car, error)
	ListCars(ctx context.Context, limit, offset int) ([]models.Car, error)
	SearchCars(ctx context.Context, criteria models.SearchCriteria, limit int) ([]models.Car, int, error)
}
