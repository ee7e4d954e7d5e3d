package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpilothq/postpilot/internal/domain"
)

type Store struct {
	pool          *pgxpool.Pool
	conversations *ConversationRepo
	transcripts   *TranscriptRepo
	businesses    *BusinessRepo
	credentials   *CredentialRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:          pool,
		conversations: NewConversationRepo(pool),
		transcripts:   NewTranscriptRepo(pool),
		businesses:    NewBusinessRepo(pool),
		credentials:   NewCredentialRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) Conversations() domain.ConversationRepository { return s.conversations }
func (s *Store) Transcripts() domain.TranscriptRepository     { return s.transcripts }
func (s *Store) Businesses() domain.BusinessRepository        { return s.businesses }
func (s *Store) Credentials() domain.CredentialRepository     { return s.credentials }
