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

// --- Chat Methods ---

// CreateChat inserts a new chat record for a user.
func (s *PostgresStore) CreateChat(ctx context.Context, arg store.CreateChatParams) (*models.Chat, error) {
	query := `
        INSERT INTO chats (id, user_id, title)
        VALUES ($1, $2, $3)
        RETURNING id, user_id, title, created_at, updated_at`

	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, query,
		arg.ID,
		arg.UserID,
		arg.Title,
	).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)

	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateChat: Failed exec/scan for UserID %s: %v", arg.UserID, err)
		return nil, fmt.Errorf("database error creating chat: %w", err)
	}

	log.Printf("[PostgresStore] CreateChat: Successfully inserted chat ID %s for UserID %s", chat.ID, chat.UserID)
	return chat, nil
}

// GetChatByID retrieves a specific chat by its ID, scoped to its owner.
func (s *PostgresStore) GetChatByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Chat, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM chats
        WHERE id = $1 AND user_id = $2`

	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, query, id, userID).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetChatByID: Failed query/scan for ID %s, UserID %s: %v", id, userID, err)
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}

	return chat, nil
}

// ListChatsByUser retrieves a page of chats for a given user, newest first.
func (s *PostgresStore) ListChatsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Chat, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM chats
        WHERE user_id = $1
        ORDER BY updated_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListChatsByUser: Failed query for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		chat := models.Chat{}
		if err := rows.Scan(
			&chat.ID,
			&chat.UserID,
			&chat.Title,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		); err != nil {
			log.Printf("ERROR [PostgresStore] ListChatsByUser: Failed scan for UserID %s: %v", userID, err)
			return nil, fmt.Errorf("database error scanning chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chats: %w", err)
	}

	return chats, nil
}

// UpdateChatTitle sets the title of a chat, scoped to its owner.
// Returns store.ErrNotFound if no row was updated.
func (s *PostgresStore) UpdateChatTitle(ctx context.Context, id uuid.UUID, userID uuid.UUID, title string) error {
	query := `
        UPDATE chats
        SET title = $3, updated_at = NOW()
        WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query, id, userID, title)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateChatTitle: Failed exec for ID %s, UserID %s: %v", id, userID, err)
		return fmt.Errorf("database error updating chat title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	log.Printf("[PostgresStore] UpdateChatTitle: Updated title for chat ID %s", id)
	return nil
}
