package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"carassist-backend/internal/models"
	"carassist-backend/internal/store"
)

// --- Message Methods ---

// CreateMessage appends a message to a chat. Messages are append-only;
// there is deliberately no update or delete counterpart.
func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.ChatMessage, error) {
	query := `
        INSERT INTO messages (id, chat_id, role, content)
        VALUES ($1, $2, $3, $4)
        RETURNING id, chat_id, role, content, created_at`

	msg := &models.ChatMessage{}
	err := s.db.QueryRow(ctx, query,
		arg.ID,
		arg.ChatID,
		string(arg.Role),
		arg.Content,
	).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)

	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateMessage: Failed exec/scan for ChatID %s: %v", arg.ChatID, err)
		return nil, fmt.Errorf("database error creating message: %w", err)
	}

	log.Printf("[PostgresStore] CreateMessage: Inserted %s message ID %s in chat %s", msg.Role, msg.ID, msg.ChatID)
	return msg, nil
}

// GetMessageByID retrieves a single message, scoped to its chat.
func (s *PostgresStore) GetMessageByID(ctx context.Context, id uuid.UUID, chatID uuid.UUID) (*models.ChatMessage, error) {
	query := `
        SELECT id, chat_id, role, content, created_at
        FROM messages
        WHERE id = $1 AND chat_id = $2`

	msg := &models.ChatMessage{}
	err := s.db.QueryRow(ctx, query, id, chatID).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetMessageByID: Failed query/scan for ID %s, ChatID %s: %v", id, chatID, err)
		return nil, fmt.Errorf("database error fetching message: %w", err)
	}

	return msg, nil
}

// ListMessagesByChat retrieves a page of messages for a chat in
// chronological order.
func (s *PostgresStore) ListMessagesByChat(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	query := `
        SELECT id, chat_id, role, content, created_at
        FROM messages
        WHERE chat_id = $1
        ORDER BY created_at ASC
        LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, chatID, limit, offset)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListMessagesByChat: Failed query for ChatID %s: %v", chatID, err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		msg := models.ChatMessage{}
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			log.Printf("ERROR [PostgresStore] ListMessagesByChat: Failed scan for ChatID %s: %v", chatID, err)
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}

	return messages, nil
}

// CountMessagesByChat counts messages of a given role in a chat. The
// orchestrator uses it to detect the first user message of a chat, which
// triggers asynchronous title generation.
func (s *PostgresStore) CountMessagesByChat(ctx context.Context, chatID uuid.UUID, role models.MessageRole) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE chat_id = $1 AND role = $2`

	var count int64
	if err := s.db.QueryRow(ctx, query, chatID, string(role)).Scan(&count); err != nil {
		log.Printf("ERROR [PostgresStore] CountMessagesByChat: Failed query for ChatID %s: %v", chatID, err)
		return 0, fmt.Errorf("database error counting messages: %w", err)
	}

	return count, nil
}
