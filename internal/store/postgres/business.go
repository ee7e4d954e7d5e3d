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

type BusinessRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessRepo(pool *pgxpool.Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

func (r *BusinessRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	var b domain.BusinessProfile

	err := r.pool.QueryRow(ctx,
		`SELECT user_id, name, url, description, updated_at
		 FROM businesses WHERE user_id = $1`,
		userID,
	).Scan(&b.UserID, &b.Name, &b.URL, &b.Description, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("businessRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("businessRepo.Get: %w", err)
	}

	return &b, nil
}

func (r *BusinessRepo) Upsert(ctx context.Context, b *domain.BusinessProfile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO businesses (user_id, name, url, description, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id)
		 DO UPDATE SET name = EXCLUDED.name, url = EXCLUDED.url,
		               description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`,
		b.UserID, b.Name, b.URL, b.Description, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("businessRepo.Upsert: %w", err)
	}

	return nil
}

func (r *BusinessRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM businesses WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("businessRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("businessRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
