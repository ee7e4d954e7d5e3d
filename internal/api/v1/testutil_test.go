package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers, injecting the user identity for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
}

// ---------------------------------------------------------------------------
// Mock Runner
// ---------------------------------------------------------------------------

type mockRunner struct {
	runFunc func(ctx context.Context, req *domain.PublishRequest) (*pipeline.Output, error)
}

func (m *mockRunner) Run(ctx context.Context, req *domain.PublishRequest) (*pipeline.Output, error) {
	return m.runFunc(ctx, req)
}

// ---------------------------------------------------------------------------
// Mock ConversationService
// ---------------------------------------------------------------------------

type mockConversationService struct {
	getFunc  func(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error)
	listFunc func(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
}

func (m *mockConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	return m.getFunc(ctx, userID, conversationID)
}

func (m *mockConversationService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	return m.listFunc(ctx, userID)
}

// ---------------------------------------------------------------------------
// Mock BusinessRepository
// ---------------------------------------------------------------------------

type mockBusinessRepo struct {
	getFunc    func(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error)
	upsertFunc func(ctx context.Context, p *domain.BusinessProfile) error
	deleteFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockBusinessRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	return m.getFunc(ctx, userID)
}

func (m *mockBusinessRepo) Upsert(ctx context.Context, p *domain.BusinessProfile) error {
	return m.upsertFunc(ctx, p)
}

func (m *mockBusinessRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	return m.deleteFunc(ctx, userID)
}

// ---------------------------------------------------------------------------
// Mock CredentialManager
// ---------------------------------------------------------------------------

type mockCredentialManager struct {
	storeFunc      func(ctx context.Context, creds *domain.PlatformCredentials) error
	connectionFunc func(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error)
	disconnectFunc func(ctx context.Context, userID uuid.UUID, platform domain.Platform) error
}

func (m *mockCredentialManager) Store(ctx context.Context, creds *domain.PlatformCredentials) error {
	return m.storeFunc(ctx, creds)
}

func (m *mockCredentialManager) Connection(ctx context.Context, userID uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error) {
	return m.connectionFunc(ctx, userID, platform)
}

func (m *mockCredentialManager) Disconnect(ctx context.Context, userID uuid.UUID, platform domain.Platform) error {
	return m.disconnectFunc(ctx, userID, platform)
}
