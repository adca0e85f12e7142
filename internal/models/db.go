package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Chat represents a conversation owned by a single user.
type Chat struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Title     *string   `db:"title"` // Pointer for nullable text; generated asynchronously
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ChatMessage represents a single persisted message in a chat.
// Messages are immutable once written. Assistant messages are only
// written once their content is final; no partial content ever
// reaches the database mid-stream.
type ChatMessage struct {
	ID        uuid.UUID   `db:"id"`
	ChatID    uuid.UUID   `db:"chat_id"`
	Role      MessageRole `db:"role"`
	Content   string      `db:"content"`
	CreatedAt time.Time   `db:"created_at"`
}

// Car represents a single catalog entry.
type Car struct {
	ID           uuid.UUID `db:"id"`
	Brand        string    `db:"brand"`
	Model        string    `db:"model"`
	BodyType     string    `db:"body_type"`
	EngineType   string    `db:"engine_type"`
	Transmission string    `db:"transmission"`
	Drive        string    `db:"drive"`
	Seats        int       `db:"seats"`
	Year         int       `db:"year"`
	Price        int64     `db:"price"`
	CreatedAt    time.Time `db:"created_at"`
}
