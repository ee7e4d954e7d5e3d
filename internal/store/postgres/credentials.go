package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpilothq/postpilot/internal/domain"
)

type CredentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

func (r *CredentialRepo) Upsert(ctx context.Context, c *domain.PlatformCredentials) error {
	var expiresAt *time.Time
	if !c.Token.Expiry.IsZero() {
		expiresAt = &c.Token.Expiry
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO platform_credentials (user_id, platform, account_id, account_name, access_token, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, platform)
		 DO UPDATE SET account_id = EXCLUDED.account_id, account_name = EXCLUDED.account_name,
		               access_token = EXCLUDED.access_token, expires_at = EXCLUDED.expires_at,
		               updated_at = EXCLUDED.updated_at`,
		c.UserID, c.Platform, c.AccountID, c.AccountName, c.Token.AccessToken, expiresAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.Upsert: %w", err)
	}

	return nil
}

func (r *CredentialRepo) Get(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error) {
	var (
		c         domain.PlatformCredentials
		expiresAt *time.Time
	)

	err := r.pool.QueryRow(ctx,
		`SELECT user_id, platform, account_id, account_name, access_token, expires_at, updated_at
		 FROM platform_credentials WHERE user_id = $1 AND platform = $2`,
		userID, platform,
	).Scan(&c.UserID, &c.Platform, &c.AccountID, &c.AccountName, &c.Token.AccessToken, &expiresAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("credentialRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("credentialRepo.Get: %w", err)
	}

	if expiresAt != nil {
		c.Token.Expiry = *expiresAt
	}

	return &c, nil
}

func (r *CredentialRepo) Delete(ctx context.Context, userID uuid.UUID, platform domain.Platform) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM platform_credentials WHERE user_id = $1 AND platform = $2`,
		userID, platform,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credentialRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CredentialRepo) ListPlatforms(ctx context.Context, userID uuid.UUID) ([]domain.Platform, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT platform FROM platform_credentials WHERE user_id = $1 ORDER BY platform`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("credentialRepo.ListPlatforms: %w", err)
	}
	defer rows.Close()

	var platforms []domain.Platform
	for rows.Next() {
		var p domain.Platform

		err = rows.Scan(&p)
		if err != nil {
			return nil, fmt.Errorf("credentialRepo.ListPlatforms: scan: %w", err)
		}
		platforms = append(platforms, p)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("credentialRepo.ListPlatforms: rows: %w", err)
	}

	return platforms, nil
}
