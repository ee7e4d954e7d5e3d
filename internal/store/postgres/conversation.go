package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpilothq/postpilot/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// Ensure creates the conversation when absent and returns the stored
// row. An id owned by a different user is a conflict.
func (r *ConversationRepo) Ensure(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, topic, created_at, updated_at)
		 VALUES ($1, $2, '', now(), now())
		 ON CONFLICT (id) DO NOTHING`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.Ensure: %w", err)
	}

	var c domain.Conversation

	err = r.pool.QueryRow(ctx,
		`SELECT c.id, c.user_id, c.topic, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM transcript_entries e WHERE e.conversation_id = c.id)
		 FROM conversations c WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &c.Topic, &c.CreatedAt, &c.UpdatedAt, &c.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.Ensure: %w", err)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("conversationRepo.Ensure: %w", domain.ErrConflict)
	}

	return &c, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, error) {
	var c domain.Conversation

	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.user_id, c.topic, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM transcript_entries e WHERE e.conversation_id = c.id)
		 FROM conversations c WHERE c.user_id = $1 AND c.id = $2`,
		userID, id,
	).Scan(&c.ID, &c.UserID, &c.Topic, &c.CreatedAt, &c.UpdatedAt, &c.EntryCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversationRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.topic, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM transcript_entries e WHERE e.conversation_id = c.id)
		 FROM conversations c WHERE c.user_id = $1
		 ORDER BY c.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var convos []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation

		err = rows.Scan(&c.ID, &c.UserID, &c.Topic, &c.CreatedAt, &c.UpdatedAt, &c.EntryCount)
		if err != nil {
			return nil, fmt.Errorf("conversationRepo.ListByUser: scan: %w", err)
		}
		convos = append(convos, &c)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.ListByUser: rows: %w", err)
	}

	return convos, nil
}

func (r *ConversationRepo) SetTopic(ctx context.Context, userID, id uuid.UUID, topic string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET topic = $1, updated_at = now()
		 WHERE user_id = $2 AND id = $3`,
		topic, userID, id,
	)
	if err != nil {
		return fmt.Errorf("conversationRepo.SetTopic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversationRepo.SetTopic: %w", domain.ErrNotFound)
	}

	return nil
}
