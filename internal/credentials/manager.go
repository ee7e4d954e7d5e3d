package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/secrets"
)

var _ domain.CredentialResolver = (*Manager)(nil) //nolint:gochecknoglobals // compile-time check

// Manager seals platform access tokens into the repository and unseals
// them for posting. Tokens are stored encrypted; plaintext only lives
// in memory on its way to the Graph API.
type Manager struct {
	repo  domain.CredentialRepository
	vault *secrets.Vault
}

// NewManager creates a Manager over repo using vault for sealing.
func NewManager(repo domain.CredentialRepository, vault *secrets.Vault) *Manager {
	return &Manager{repo: repo, vault: vault}
}

// Store encrypts the access token and upserts the connection.
func (m *Manager) Store(ctx context.Context, creds *domain.PlatformCredentials) error {
	sealed, err := m.vault.Encrypt(creds.Token.AccessToken)
	if err != nil {
		return fmt.Errorf("credentials.Manager.Store: %w", err)
	}

	stored := *creds
	stored.Token.AccessToken = sealed
	if err := m.repo.Upsert(ctx, &stored); err != nil {
		return fmt.Errorf("credentials.Manager.Store: %w", err)
	}
	return nil
}

// Resolve loads and decrypts the credentials for one platform. A
// platform the user never linked resolves to ErrNotConnected.
func (m *Manager) Resolve(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error) {
	creds, err := m.repo.Get(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("credentials.Manager.Resolve: %s: %w", platform, domain.ErrNotConnected)
		}
		return nil, fmt.Errorf("credentials.Manager.Resolve: %w", err)
	}

	token, err := m.vault.Decrypt(creds.Token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("credentials.Manager.Resolve: unseal token: %w", err)
	}
	creds.Token.AccessToken = token
	return creds, nil
}

// Connected lists the platforms the user has linked.
func (m *Manager) Connected(ctx context.Context, userID uuid.UUID) ([]domain.Platform, error) {
	platforms, err := m.repo.ListPlatforms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("credentials.Manager.Connected: %w", err)
	}
	return platforms, nil
}

// Connection returns the stored row for one platform with the token
// still sealed. Status reads never need plaintext.
func (m *Manager) Connection(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error) {
	creds, err := m.repo.Get(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("credentials.Manager.Connection: %w", err)
	}
	return creds, nil
}

// Disconnect removes the stored connection for one platform.
func (m *Manager) Disconnect(ctx context.Context, userID uuid.UUID, platform domain.Platform) error {
	if err := m.repo.Delete(ctx, userID, platform); err != nil {
		return fmt.Errorf("credentials.Manager.Disconnect: %w", err)
	}
	return nil
}
