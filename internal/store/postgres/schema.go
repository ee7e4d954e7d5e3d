package postgres

import (
	"context"
	"fmt"
)

//nolint:gochecknoglobals // schema statements executed in order
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL,
		topic      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_user
		ON conversations (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transcript_entries (
		seq             BIGSERIAL PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		entry_key       TEXT NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL,
		stage           TEXT NOT NULL DEFAULT '',
		UNIQUE (conversation_id, entry_key)
	)`,
	`CREATE TABLE IF NOT EXISTS businesses (
		user_id     UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		url         TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS platform_credentials (
		user_id      UUID NOT NULL,
		platform     TEXT NOT NULL,
		account_id   TEXT NOT NULL,
		account_name TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL,
		expires_at   TIMESTAMPTZ,
		updated_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, platform)
	)`,
}

// EnsureSchema creates the tables the store needs. Statements are
// idempotent so startup can run this unconditionally.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres.Store.EnsureSchema: %w", err)
		}
	}
	return nil
}
