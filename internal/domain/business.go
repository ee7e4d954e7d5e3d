package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BusinessProfile is the user's business context fed to every sub-agent
// prompt. One profile per user.
type BusinessProfile struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BusinessRepository stores business profiles keyed by user.
type BusinessRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*BusinessProfile, error)
	Upsert(ctx context.Context, p *BusinessProfile) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
