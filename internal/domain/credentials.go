package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// PlatformCredentials binds a user to one platform account. AccountID is
// the Graph object the pipeline posts against (page id for Facebook,
// business account id for Instagram). Token.AccessToken is sealed at
// rest; the repository round-trips ciphertext and the resolver is the
// only place plaintext exists.
type PlatformCredentials struct {
	UserID      uuid.UUID    `json:"user_id"`
	Platform    Platform     `json:"platform"`
	AccountID   string       `json:"account_id"`
	AccountName string       `json:"account_name,omitempty"`
	Token       oauth2.Token `json:"-"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CredentialRepository persists platform credentials.
type CredentialRepository interface {
	Upsert(ctx context.Context, c *PlatformCredentials) error
	Get(ctx context.Context, userID uuid.UUID, platform Platform) (*PlatformCredentials, error)
	Delete(ctx context.Context, userID uuid.UUID, platform Platform) error
	ListPlatforms(ctx context.Context, userID uuid.UUID) ([]Platform, error)
}

// CredentialResolver hands out usable (decrypted) credentials.
// Resolve returns ErrNotConnected when the user has no credentials for
// the platform.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, platform Platform) (*PlatformCredentials, error)
	Connected(ctx context.Context, userID uuid.UUID) ([]Platform, error)
}
