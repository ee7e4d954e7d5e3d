package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpilothq/postpilot/internal/transcript"
)

type TranscriptRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepo(pool *pgxpool.Pool) *TranscriptRepo {
	return &TranscriptRepo{pool: pool}
}

// Append upserts one record keyed by (conversation, entry key). A
// growing message replaces its earlier revision while keeping the
// original seq, so the entry holds its position.
func (r *TranscriptRepo) Append(ctx context.Context, conversationID uuid.UUID, rec transcript.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("transcriptRepo.Append: %w", err)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_entries (conversation_id, entry_key, role, content, stage)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (conversation_id, entry_key)
		 DO UPDATE SET role = EXCLUDED.role, content = EXCLUDED.content, stage = EXCLUDED.stage`,
		conversationID, rec.Timestamp, rec.Role, rec.Content, rec.Stage,
	)
	if err != nil {
		return fmt.Errorf("transcriptRepo.Append: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("transcriptRepo.Append: touch conversation: %w", err)
	}

	return nil
}

func (r *TranscriptRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]transcript.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT entry_key, role, content, stage
		 FROM transcript_entries WHERE conversation_id = $1
		 ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("transcriptRepo.ListByConversation: %w", err)
	}
	defer rows.Close()

	var records []transcript.Record
	for rows.Next() {
		var rec transcript.Record

		err = rows.Scan(&rec.Timestamp, &rec.Role, &rec.Content, &rec.Stage)
		if err != nil {
			return nil, fmt.Errorf("transcriptRepo.ListByConversation: scan: %w", err)
		}
		records = append(records, rec)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("transcriptRepo.ListByConversation: rows: %w", err)
	}

	return records, nil
}

func (r *TranscriptRepo) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transcript_entries WHERE conversation_id = $1`,
		conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("transcriptRepo.CountByConversation: %w", err)
	}

	return count, nil
}
