package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/server/middleware"
)

type CreateConversationOutput struct {
	Body struct {
		ID uuid.UUID `json:"id" doc:"New conversation ID"`
	}
}

type GetConversationInput struct {
	ID uuid.UUID `path:"id" doc:"Conversation ID"`
}

type GetConversationOutput struct {
	Body *domain.Conversation
}

type ListConversationsOutput struct {
	Body []*domain.Conversation
}

func RegisterConversationRoutes(api huma.API, chats ConversationService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-conversation",
		Method:      http.MethodPost,
		Path:        "/conversations",
		Summary:     "Mint a new conversation ID",
		Tags:        []string{"Conversations"},
	}, func(ctx context.Context, _ *struct{}) (*CreateConversationOutput, error) {
		if _, ok := middleware.UserIDFromContext(ctx); !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		// The row materializes on the first transcript record.
		out := &CreateConversationOutput{}
		out.Body.ID = uuid.New()

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-conversations",
		Method:      http.MethodGet,
		Path:        "/conversations",
		Summary:     "List the caller's conversations",
		Tags:        []string{"Conversations"},
	}, func(ctx context.Context, _ *struct{}) (*ListConversationsOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		convos, err := chats.List(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list conversations", err)
		}

		return &ListConversationsOutput{Body: convos}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-conversation",
		Method:      http.MethodGet,
		Path:        "/conversations/{id}",
		Summary:     "Get a conversation by ID",
		Tags:        []string{"Conversations"},
	}, func(ctx context.Context, input *GetConversationInput) (*GetConversationOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		conv, err := chats.Get(ctx, userID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("conversation not found")
			}
			return nil, huma.Error500InternalServerError("failed to get conversation", err)
		}

		return &GetConversationOutput{Body: conv}, nil
	})
}
