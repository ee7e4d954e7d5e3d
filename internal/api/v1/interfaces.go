package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/pipeline"
)

// Runner abstracts the publishing pipeline for handler testing.
// *pipeline.Orchestrator satisfies this interface.
type Runner interface {
	Run(ctx context.Context, req *domain.PublishRequest) (*pipeline.Output, error)
}

// ConversationService abstracts conversation reads for handler testing.
// *chat.Service satisfies this interface.
type ConversationService interface {
	Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
}

// CredentialManager abstracts platform connection management for handler
// testing. *credentials.Manager satisfies this interface.
type CredentialManager interface {
	Store(ctx context.Context, creds *domain.PlatformCredentials) error
	Connection(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error)
	Disconnect(ctx context.Context, userID uuid.UUID, platform domain.Platform) error
}
