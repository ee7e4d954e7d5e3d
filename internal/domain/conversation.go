package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/transcript"
)

// Conversation groups the transcript of one publishing or chat thread.
// Topic is labeled from the first user message; EntryCount is populated
// on list reads only.
type Conversation struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Topic      string    `json:"topic"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EntryCount int64     `json:"entry_count,omitempty"`
}

// ConversationRepository stores conversation metadata.
type ConversationRepository interface {
	// Ensure creates the conversation if absent and returns the stored row.
	// Conversations materialize lazily, on the first transcript record.
	// An existing id owned by a different user is ErrConflict.
	Ensure(ctx context.Context, userID, id uuid.UUID) (*Conversation, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)
	SetTopic(ctx context.Context, userID, id uuid.UUID, topic string) error
}

// TranscriptRepository stores the ordered transcript records per
// conversation. Append upserts by the record's timestamp key: a record
// sharing a stored key replaces that entry's content in place, keeping
// its position; a new key appends.
type TranscriptRepository interface {
	Append(ctx context.Context, conversationID uuid.UUID, rec transcript.Record) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]transcript.Record, error)
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
}
